package user

import "time"

// User is the stored account document.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Region       string    `json:"region,omitempty"`
	Verified     bool      `json:"verified"`
	Token        string    `json:"token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Region    string    `json:"region,omitempty"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		Region:    u.Region,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}
