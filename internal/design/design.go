// Package design persists shopper designs made in Printful's embedded designer and
// runs the guest draft → login → claim handoff.
package design

import (
	"context"
	"errors"
	"time"
)

// Status of a saved design.
type Status string

const (
	StatusDraft Status = "draft"
	StatusSaved Status = "saved"
)

// DefaultName is used when a save carries no design name.
const DefaultName = "Untitled Design"

// Store errors.
var (
	ErrNotFound  = errors.New("design: not found")
	ErrDuplicate = errors.New("design: external product id already saved by this user")
)

// Design is one row of printful_designs. At most one row exists per
// (UserID, ExternalProductID); legacy rows have no external id.
type Design struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	ProductID         int64     `json:"product_id"`
	DesignData        string    `json:"design_data,omitempty"`
	DesignName        string    `json:"design_name"`
	Status            Status    `json:"status"`
	ExternalProductID string    `json:"external_product_id,omitempty"`
	TemplateID        int64     `json:"template_id,omitempty"`
	MockupURL         string    `json:"mockup_url,omitempty"`
	UnitPrice         *float64  `json:"unit_price,omitempty"`
	Currency          string    `json:"currency,omitempty"`
	VariantID         int64     `json:"variant_id,omitempty"`
	DesignCategory    string    `json:"design_category,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	LastSaved         time.Time `json:"last_saved,omitempty"`
}

// Store is design persistence. Every read and write except Upsert/Insert is
// scoped to the owning user.
type Store interface {
	// Upsert inserts or overwrites the row keyed by (UserID, ExternalProductID)
	// and returns its id. An empty MockupURL keeps the stored one.
	Upsert(ctx context.Context, d *Design) (int64, error)
	// Insert adds a legacy row without an external product id.
	Insert(ctx context.Context, d *Design) (int64, error)
	// Replace overwrites row id when it belongs to d.UserID.
	Replace(ctx context.Context, id int64, d *Design) error
	Get(ctx context.Context, id, userID int64) (*Design, error)
	List(ctx context.Context, userID int64) ([]Design, error)
	SetMockup(ctx context.Context, id, userID int64, url string) error
	Delete(ctx context.Context, id, userID int64) (int64, error)
}

func orDefaultName(name string) string {
	if name == "" {
		return DefaultName
	}
	return name
}
