package marketplace

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusSold     = "sold"
)

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
	OrderCompleted = "completed"
)

// Listing is a farmer's produce offer.
type Listing struct {
	ID                string    `json:"id"`
	FarmerID          string    `json:"farmer_id"`
	Title             string    `json:"title"`
	Category          string    `json:"category"`
	Description       string    `json:"description,omitempty"`
	Unit              string    `json:"unit"`
	QuantityAvailable float64   `json:"quantity_available"`
	UnitPrice         float64   `json:"unit_price"`
	Region            string    `json:"region,omitempty"`
	QualityGrade      *string   `json:"quality_grade"`
	Status            string    `json:"status"` // active, inactive, sold
	CreatedAt         time.Time `json:"created_at"`
}

// OrderItem is a listing snapshot taken when the order was placed.
type OrderItem struct {
	ListingID string  `json:"listing_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Title     string  `json:"title"`
}

// Order represents a buyer's purchase of one or more listings
type Order struct {
	ID            string      `json:"id"`
	BuyerID       string      `json:"buyer_id"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	Status        string      `json:"status"` // pending, confirmed, cancelled, completed
	DeliveryTerms *string     `json:"delivery_terms"`
	PaymentMethod *string     `json:"payment_method"`
	CreatedAt     time.Time   `json:"created_at"`
}
