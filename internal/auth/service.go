// Package auth registers users, checks credentials and resolves bearer
// tokens to callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/store"
	"github.com/sudo-init-do/agricompass/internal/user"
	"github.com/sudo-init-do/agricompass/internal/validation"
)

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=farmer buyer officer admin"`
	Phone    string `json:"phone"`
	Region   string `json:"region"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by signup and login.
type Session struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

type Service struct {
	store      store.Store
	tokens     *TokenIssuer
	bcryptCost int
	log        logrus.FieldLogger
}

func NewService(st store.Store, tokens *TokenIssuer, bcryptCost int, log logrus.FieldLogger) *Service {
	return &Service{store: st, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new user and issues their first session token.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = identity.RoleFarmer
	}
	if err := validation.Struct(req); err != nil {
		return Session{}, err
	}
	if len(req.Password) > maxPasswordBytes {
		return Session{}, apperr.BadRequest("password must be at most %d bytes", maxPasswordBytes)
	}

	_, err := s.findByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return Session{}, apperr.Conflict("Email already registered")
	case !errors.Is(err, store.ErrNotFound):
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	// the token must name the user id, so it is attached right after insert
	rec, err := s.store.Create(ctx, store.Users, user.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Phone:        req.Phone,
		Region:       req.Region,
		Verified:     false,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return Session{}, apperr.Conflict("Email already registered")
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.ensureToken(ctx, rec.ID, req.Role, "")
	if err != nil {
		return Session{}, err
	}

	s.log.WithFields(logrus.Fields{"user_id": rec.ID, "role": req.Role}).Info("user registered")
	return Session{ID: rec.ID, Token: token, Role: req.Role, Name: req.Name}, nil
}

// Login checks credentials and returns the user's session token, issuing one
// if the user has none.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validation.Struct(req); err != nil {
		return Session{}, err
	}

	u, err := s.findByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return Session{}, apperr.Unauthorized("Invalid credentials")
	}

	role := u.Role
	if role == "" {
		role = identity.RoleFarmer
	}
	// a stored token signed with a previous secret is replaced
	token := u.Token
	if _, verr := s.tokens.Verify(token); token == "" || verr != nil {
		if token, err = s.ensureToken(ctx, u.ID, role, u.Token); err != nil {
			return Session{}, err
		}
	}
	return Session{ID: u.ID, Token: token, Role: role, Name: u.Name}, nil
}

// ensureToken stores a fresh token on the user if the record still holds
// current ("" for none), and returns whichever token the record holds
// afterwards. The update is a single conditional write, so concurrent logins
// agree on one token.
func (s *Service) ensureToken(ctx context.Context, userID, role, current string) (string, error) {
	token, err := s.tokens.Issue(userID, role)
	if err != nil {
		return "", err
	}
	held := store.Empty("token")
	if current != "" {
		held = store.Eq("token", current)
	}
	ok, err := s.store.UpdateOne(ctx, store.Users,
		store.Where(store.ByID(userID), held),
		map[string]any{"token": token},
	)
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	if ok {
		return token, nil
	}

	rec, err := s.store.FindOne(ctx, store.Users, store.Where(store.ByID(userID)))
	if err != nil {
		return "", fmt.Errorf("reload user: %w", err)
	}
	var u user.User
	if err := rec.Decode(&u); err != nil {
		return "", err
	}
	if u.Token == "" || u.Token == current {
		return "", fmt.Errorf("user %s has no usable token after issuance", userID)
	}
	return u.Token, nil
}

// Resolve maps an Authorization header to the calling user.
func (s *Service) Resolve(ctx context.Context, header string) (identity.Caller, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return identity.Caller{}, apperr.Unauthorized("Unauthorized")
	}
	if _, err := s.tokens.Verify(token); err != nil {
		return identity.Caller{}, apperr.Unauthorized("Invalid token")
	}

	rec, err := s.store.FindOne(ctx, store.Users, store.Where(store.Eq("token", token)))
	if errors.Is(err, store.ErrNotFound) {
		return identity.Caller{}, apperr.Unauthorized("Invalid token")
	}
	if err != nil {
		return identity.Caller{}, fmt.Errorf("resolve token: %w", err)
	}
	var u user.User
	if err := rec.Decode(&u); err != nil {
		return identity.Caller{}, err
	}
	role := u.Role
	if role == "" {
		role = identity.RoleFarmer
	}
	return identity.Caller{ID: u.ID, Role: role, Name: u.Name}, nil
}

// Logout revokes the caller's token.
func (s *Service) Logout(ctx context.Context, caller identity.Caller) error {
	_, err := s.store.UpdateOne(ctx, store.Users, store.Where(store.ByID(caller.ID)), map[string]any{"token": ""})
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (user.User, error) {
	rec, err := s.store.FindOne(ctx, store.Users, store.Where(store.Eq("email", email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("find user: %w", err)
	}
	var u user.User
	if err := rec.Decode(&u); err != nil {
		return user.User{}, err
	}
	return u, nil
}
