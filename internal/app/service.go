package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

// maxTransitionAttempts bounds how often a transition is retried after losing
// a conditional update to a concurrent request.
const maxTransitionAttempts = 3

// VendorService orchestrates vendor lifecycle operations.
type VendorService struct {
	repo      domain.VendorRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	hasher    domain.PasswordHasher
	sender    domain.CredentialSender
	now       func() time.Time
}

// NewVendorService creates a service with the given adapters.
func NewVendorService(
	repo domain.VendorRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	hasher domain.PasswordHasher,
	sender domain.CredentialSender,
) *VendorService {
	return &VendorService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		hasher:    hasher,
		sender:    sender,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new active vendor, delivers its credentials and
// publishes a vendor_added event.
func (s *VendorService) Create(ctx context.Context, actor domain.Actor, in VendorInput) (domain.Vendor, error) {
	if err := actor.Authorize(); err != nil {
		return domain.Vendor{}, err
	}
	if err := validateInput(&in, true); err != nil {
		return domain.Vendor{}, err
	}

	profile := in.profile()
	if err := s.ensureEmailFree(ctx, profile.Email, ""); err != nil {
		return domain.Vendor{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("hashing password: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("generating vendor id: %w", err)
	}

	vendor := domain.NewVendor(id, profile, hash)

	if err := s.repo.Create(ctx, vendor); err != nil {
		return domain.Vendor{}, fmt.Errorf("creating vendor: %w", err)
	}

	s.publish(ctx, domain.TopicVendorAdded, vendor)
	s.deliverCredentials(ctx, vendor, in.Password, "Your Vendor Account Details")

	return vendor, nil
}

// Update overwrites the vendor's profile. A non-empty password replaces the
// stored credential and is delivered to the vendor.
func (s *VendorService) Update(ctx context.Context, actor domain.Actor, id string, in VendorInput) (domain.Vendor, error) {
	if err := actor.Authorize(); err != nil {
		return domain.Vendor{}, err
	}
	if err := validateInput(&in, false); err != nil {
		return domain.Vendor{}, err
	}

	vendor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Vendor{}, err
	}

	profile := in.profile()
	if profile.Email != vendor.Email {
		if err := s.ensureEmailFree(ctx, profile.Email, vendor.ID); err != nil {
			return domain.Vendor{}, err
		}
	}

	vendor.SetProfile(profile)
	vendor.UpdatedAt = s.now()

	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return domain.Vendor{}, fmt.Errorf("hashing password: %w", err)
		}
		vendor.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, vendor); err != nil {
		return domain.Vendor{}, fmt.Errorf("updating vendor: %w", err)
	}

	s.publish(ctx, domain.TopicVendorUpdated, vendor)
	if in.Password != "" {
		s.deliverCredentials(ctx, vendor, in.Password, "Your Vendor Account Updated")
	}

	return vendor, nil
}

// GetByID returns a vendor by its unique identifier.
func (s *VendorService) GetByID(ctx context.Context, actor domain.Actor, id string) (domain.Vendor, error) {
	if err := actor.Authorize(); err != nil {
		return domain.Vendor{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// List returns every vendor, newest first.
func (s *VendorService) List(ctx context.Context, actor domain.Actor) ([]domain.Vendor, error) {
	if err := actor.Authorize(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// RequestDeactivation moves an active vendor to pending_deactivation and
// disables it immediately.
func (s *VendorService) RequestDeactivation(ctx context.Context, actor domain.Actor, id string) (domain.Vendor, error) {
	return s.Transition(ctx, actor, id, domain.EventRequestDeactivation)
}

// RequestReactivation moves a deactivated or pending_deactivation vendor to
// pending_activation. The vendor stays disabled until it is reset.
func (s *VendorService) RequestReactivation(ctx context.Context, actor domain.Actor, id string) (domain.Vendor, error) {
	return s.Transition(ctx, actor, id, domain.EventRequestReactivation)
}

// ResetStatus unconditionally returns a vendor to active.
func (s *VendorService) ResetStatus(ctx context.Context, actor domain.Actor, id string) (domain.Vendor, error) {
	return s.Transition(ctx, actor, id, domain.EventReset)
}

// Transition applies a lifecycle event to a vendor, changing its state.
// The write is conditional on the status that was validated, so two
// concurrent requests cannot both apply.
func (s *VendorService) Transition(ctx context.Context, actor domain.Actor, id string, event domain.Event) (domain.Vendor, error) {
	if err := actor.Authorize(); err != nil {
		return domain.Vendor{}, err
	}

	for attempt := 1; ; attempt++ {
		vendor, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return domain.Vendor{}, err
		}

		newStatus, err := s.validator.Apply(ctx, vendor.EffectiveStatus(), event)
		if err != nil {
			return domain.Vendor{}, err
		}

		updated := vendor.WithStatus(newStatus, actor.ID, s.now())

		err = s.repo.UpdateStatus(ctx, updated, vendor.Status, vendor.IsActive)
		if errors.Is(err, domain.ErrStatusChanged) && attempt < maxTransitionAttempts {
			slog.DebugContext(ctx, "vendor status changed concurrently, retrying",
				"vendor_id", id,
				"event", event,
				"attempt", attempt,
			)
			continue
		}
		if errors.Is(err, domain.ErrStatusChanged) {
			return domain.Vendor{}, s.lostRace(ctx, id, event)
		}
		if err != nil {
			return domain.Vendor{}, fmt.Errorf("updating vendor status: %w", err)
		}

		s.publish(ctx, domain.TopicVendorStatusChanged, updated)
		return updated, nil
	}
}

// lostRace reports the state that won after the last conditional write failed.
func (s *VendorService) lostRace(ctx context.Context, id string, event domain.Event) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.TransitionError{Event: event, Current: current.EffectiveStatus()}
}

func (s *VendorService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrVendorNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking email uniqueness: %w", err)
	case existing.ID == selfID:
		return nil
	}
	return &domain.EmailConflictError{Email: email}
}

// deliverCredentials sends the plaintext credential out of band. It runs after
// the change is published, and a delivery failure does not undo the write.
func (s *VendorService) deliverCredentials(ctx context.Context, vendor domain.Vendor, password, subject string) {
	if err := s.sender.SendCredentials(ctx, vendor, password, subject); err != nil {
		slog.WarnContext(ctx, "credential delivery failed",
			"vendor_id", vendor.ID,
			"email", vendor.Email,
			"error", err,
		)
	}
}

// publish emits a change notification. Observers are best effort: a failure
// is logged and the operation still succeeds.
func (s *VendorService) publish(ctx context.Context, topic domain.Topic, vendor domain.Vendor) {
	if err := s.publisher.Publish(ctx, topic, vendor); err != nil {
		slog.WarnContext(ctx, "publishing vendor event failed",
			"topic", topic,
			"vendor_id", vendor.ID,
			"error", err,
		)
	}
}
