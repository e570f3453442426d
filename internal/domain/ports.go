package domain

import "context"

// VendorRepository defines the persistence contract for vendors.
type VendorRepository interface {
	Create(ctx context.Context, vendor Vendor) error
	GetByID(ctx context.Context, id string) (Vendor, error)
	GetByEmail(ctx context.Context, email string) (Vendor, error)
	List(ctx context.Context) ([]Vendor, error)
	Update(ctx context.Context, vendor Vendor) error

	// UpdateStatus writes the lifecycle fields of vendor only if the stored
	// row still has the expected status and is_active flag. It returns
	// ErrStatusChanged when the condition no longer holds.
	UpdateStatus(ctx context.Context, vendor Vendor, expected Status, expectedActive bool) error
}

// AdminRepository defines the persistence contract for admin accounts.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin Admin) error
	GetAdminByEmail(ctx context.Context, email string) (Admin, error)
}

// EventPublisher defines the contract for emitting change notifications.
type EventPublisher interface {
	Publish(ctx context.Context, topic Topic, vendor Vendor) error
}

// TransitionValidator checks a lifecycle event against the current status
// and returns the destination status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// PasswordHasher hashes and verifies plaintext credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) bool
}

// TokenVerifier resolves a bearer token to the actor it was issued for.
// Any failure is reported as ErrUnauthenticated.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Actor, error)
}

// TokenIssuer signs bearer tokens for authenticated admins.
type TokenIssuer interface {
	Issue(ctx context.Context, actor Actor) (string, error)
}

// CredentialSender delivers a freshly set plaintext credential out of band.
type CredentialSender interface {
	SendCredentials(ctx context.Context, vendor Vendor, password, subject string) error
}
