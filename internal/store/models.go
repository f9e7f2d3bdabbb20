package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	ApprovalStatus        string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Vendor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContactName string    `json:"contactName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	VendorID  string    `json:"vendorId"`
	UnitPrice float64   `json:"unitPrice"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Order struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	FloorPlan string    `json:"floorPlan"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Joined for API responses
	ClientName string `json:"clientName"`
}

// ItemOptions is the free-form options bag on a line item. PONumber is the
// one field the purchase-order workflow writes back onto the live order.
type ItemOptions struct {
	Finish         string `json:"finish,omitempty"`
	Fabric         string `json:"fabric,omitempty"`
	Size           string `json:"size,omitempty"`
	PONumber       string `json:"poNumber,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
	Specifications string `json:"specifications,omitempty"`
}

// OrderItem is a live, mutable line item on an order.
type OrderItem struct {
	ID          string      `json:"itemId"`
	OrderID     string      `json:"-"`
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Category    string      `json:"category"`
	VendorID    string      `json:"vendorId"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unitPrice"`
	FinalPrice  float64     `json:"finalPrice"`
	Options     ItemOptions `json:"options"`
	CreatedAt   time.Time   `json:"-"`
	UpdatedAt   time.Time   `json:"-"`
}

// SnapshotItem is one denormalized line item inside a version snapshot.
// ItemID carries the live item's id from build time so sync-back has a
// stable join key; client-edited items may arrive without one, in which
// case the (ProductID, ProductName) pair is the fallback match.
type SnapshotItem struct {
	ItemID      string      `json:"itemId,omitempty"`
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	Category    string      `json:"category"`
	VendorID    string      `json:"vendorId,omitempty"`
	Quantity    int         `json:"quantity"`
	UnitPrice   float64     `json:"unitPrice"`
	LineTotal   float64     `json:"lineTotal"`
	Options     ItemOptions `json:"options"`
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	SalesTax float64 `json:"salesTax"`
	Shipping float64 `json:"shipping"`
	Others   float64 `json:"others"`
	Total    float64 `json:"total"`
}

// Version is one immutable-once-created proposal or purchase-order
// iteration. VendorID is empty for proposal versions. Number is unique and
// gapless per (OrderID, VendorID); the store enforces uniqueness and the
// service assigns numbers.
type Version struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"orderId"`
	VendorID  string         `json:"vendorId,omitempty"`
	Kind      string         `json:"kind"`
	Number    int            `json:"version"`
	Items     []SnapshotItem `json:"items"`
	Totals    Totals         `json:"totals"`
	Notes     string         `json:"notes"`
	Status    string         `json:"status"`
	CreatedBy string         `json:"createdBy"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type JourneyStep struct {
	OrderID     string     `json:"orderId"`
	StepNo      int        `json:"stepNo"`
	Phase       string     `json:"phase"`
	Title       string     `json:"title"`
	Milestone   bool       `json:"milestone"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty"`
}

type Payment struct {
	OrderID       string     `json:"orderId"`
	InstallmentNo int        `json:"installmentNo"`
	Label         string     `json:"label"`
	Amount        float64    `json:"amount"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

// VendorItemRef points a vendor at one of its line items across orders.
// Derived from live order items, never stored as a reverse list.
type VendorItemRef struct {
	OrderID     string  `json:"orderId"`
	ItemID      string  `json:"itemId"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	PONumber    string  `json:"poNumber,omitempty"`
}
