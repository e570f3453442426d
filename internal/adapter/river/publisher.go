package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// VendorSnapshot is the vendor as it looked when the event was published.
// It never carries the credential hash.
type VendorSnapshot struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	CompanyName             string     `json:"company_name"`
	CompanyType             string     `json:"company_type"`
	GSTIN                   string     `json:"gstin"`
	ContactNumber           string     `json:"contact_number"`
	Email                   string     `json:"email"`
	Address                 string     `json:"address"`
	Pincode                 string     `json:"pincode"`
	IsActive                bool       `json:"is_active"`
	DeactivationStatus      string     `json:"deactivation_status"`
	DeactivationRequestedBy string     `json:"deactivation_requested_by,omitempty"`
	DeactivationRequestedAt *time.Time `json:"deactivation_requested_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// NewVendorSnapshot copies the public fields of v.
func NewVendorSnapshot(v domain.Vendor) VendorSnapshot {
	s := VendorSnapshot{
		ID:                      v.ID,
		Name:                    v.Name,
		CompanyName:             v.CompanyName,
		CompanyType:             string(v.CompanyType),
		GSTIN:                   v.GSTIN,
		ContactNumber:           v.ContactNumber,
		Email:                   v.Email,
		Address:                 v.Address,
		Pincode:                 v.Pincode,
		IsActive:                v.IsActive,
		DeactivationStatus:      string(v.Status),
		DeactivationRequestedBy: v.StatusRequestedBy,
		CreatedAt:               v.CreatedAt,
		UpdatedAt:               v.UpdatedAt,
	}
	if !v.StatusRequestedAt.IsZero() {
		at := v.StatusRequestedAt
		s.DeactivationRequestedAt = &at
	}
	return s
}

// EventJobArgs carries a vendor change notification through the queue.
// River serializes this as JSON into its job table, so the worker never needs
// to query the database.
type EventJobArgs struct {
	Topic  string         `json:"topic"`
	Vendor VendorSnapshot `json:"vendor"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "vendor.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a vendor event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, topic domain.Topic, vendor domain.Vendor) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Topic:  string(topic),
		Vendor: NewVendorSnapshot(vendor),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing %s job: %w", topic, err)
	}
	return nil
}
