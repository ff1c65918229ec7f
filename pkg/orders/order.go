// Package orders models the backend's water-delivery orders and the per-role
// views and actions derived from them.
//
// The client never computes a status transition: every Status shown is the
// last value the backend sent.
package orders

import (
	"encoding/json"
	"time"

	"github.com/shashiranjanraj/aquaportal/pkg/geo"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusAccepted  Status = "Accepted"
	StatusDelivered Status = "Delivered"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusPaid, StatusAccepted, StatusDelivered, StatusRejected, StatusCancelled}

// In reports whether s is one of set.
func (s Status) In(set []Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// PaymentPaid is the paymentStatus of a settled order.
const PaymentPaid = "paid"

// Party is a user or supplier reference. The backend sends either the bare id
// or the populated document.
type Party struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (p *Party) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*p = Party{ID: id}
		return nil
	}

	var doc struct {
		MID   string `json:"_id"`
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*p = Party{ID: doc.MID, Name: doc.Name, Email: doc.Email}
	if p.ID == "" {
		p.ID = doc.ID
	}
	return nil
}

// Label is what tables show for the party.
func (p *Party) Label() string {
	switch {
	case p == nil || p.ID == "":
		return "Not assigned"
	case p.Name != "":
		return p.Name
	default:
		return p.ID
	}
}

// Order is the client's read-through copy of a backend order.
type Order struct {
	ID            string     `json:"_id"`
	Quantity      int        `json:"quantity"`
	Status        Status     `json:"status"`
	Address       string     `json:"address,omitempty"`
	ScheduledAt   string     `json:"dateTime,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	User          Party      `json:"userId"`
	Supplier      *Party     `json:"supplierId"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	Location      *geo.Point `json:"location,omitempty"`
}

// UnmarshalJSON accepts "id" when "_id" is absent.
func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var raw struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order(raw.plain)
	if o.ID == "" {
		o.ID = raw.AltID
	}
	return nil
}

// Payment returns the payment status, defaulting to "unpaid".
func (o Order) Payment() string {
	if o.PaymentStatus == "" {
		return "unpaid"
	}
	return o.PaymentStatus
}

// Paid reports whether payment has settled.
func (o Order) Paid() bool { return o.PaymentStatus == PaymentPaid }

// SupplierID returns the assigned supplier's id, or "" when unassigned.
func (o Order) SupplierID() string {
	if o.Supplier == nil {
		return ""
	}
	return o.Supplier.ID
}
