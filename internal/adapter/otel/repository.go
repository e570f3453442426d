package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

const instrumentationName = "github.com/neomorfeo/vendorhub/internal/adapter/otel"

// recordError marks the span as failed when err is non-nil.
func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TracingRepository wraps a domain.VendorRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.VendorRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.VendorRepository.
var _ domain.VendorRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.VendorRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, vendor domain.Vendor) error {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.Create",
		trace.WithAttributes(
			attribute.String("vendor.id", vendor.ID),
			attribute.String("vendor.company_type", string(vendor.CompanyType)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, vendor)
	recordError(span, err)
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Vendor, error) {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.GetByID",
		trace.WithAttributes(attribute.String("vendor.id", id)),
	)
	defer span.End()

	vendor, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return vendor, err
}

// GetByEmail does not record the address on the span.
func (r *TracingRepository) GetByEmail(ctx context.Context, email string) (domain.Vendor, error) {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.GetByEmail")
	defer span.End()

	vendor, err := r.next.GetByEmail(ctx, email)
	recordError(span, err)
	return vendor, err
}

func (r *TracingRepository) List(ctx context.Context) ([]domain.Vendor, error) {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.List")
	defer span.End()

	vendors, err := r.next.List(ctx)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(vendors)))
	}
	return vendors, err
}

func (r *TracingRepository) Update(ctx context.Context, vendor domain.Vendor) error {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.Update",
		trace.WithAttributes(attribute.String("vendor.id", vendor.ID)),
	)
	defer span.End()

	err := r.next.Update(ctx, vendor)
	recordError(span, err)
	return err
}

func (r *TracingRepository) UpdateStatus(ctx context.Context, vendor domain.Vendor, expected domain.Status, expectedActive bool) error {
	ctx, span := r.tracer.Start(ctx, "VendorRepository.UpdateStatus",
		trace.WithAttributes(
			attribute.String("vendor.id", vendor.ID),
			attribute.String("vendor.status.from", string(expected)),
			attribute.String("vendor.status.to", string(vendor.Status)),
			attribute.Bool("vendor.is_active.expected", expectedActive),
		),
	)
	defer span.End()

	err := r.next.UpdateStatus(ctx, vendor, expected, expectedActive)
	recordError(span, err)
	return err
}

// TracingAdminRepository wraps a domain.AdminRepository with OpenTelemetry tracing.
type TracingAdminRepository struct {
	next   domain.AdminRepository
	tracer trace.Tracer
}

// Compile-time check: TracingAdminRepository implements domain.AdminRepository.
var _ domain.AdminRepository = (*TracingAdminRepository)(nil)

func NewTracingAdminRepository(next domain.AdminRepository) *TracingAdminRepository {
	return &TracingAdminRepository{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
	}
}

func (r *TracingAdminRepository) CreateAdmin(ctx context.Context, admin domain.Admin) error {
	ctx, span := r.tracer.Start(ctx, "AdminRepository.CreateAdmin",
		trace.WithAttributes(
			attribute.String("admin.id", admin.ID),
			attribute.String("admin.role", string(admin.Role)),
		),
	)
	defer span.End()

	err := r.next.CreateAdmin(ctx, admin)
	recordError(span, err)
	return err
}

func (r *TracingAdminRepository) GetAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	ctx, span := r.tracer.Start(ctx, "AdminRepository.GetAdminByEmail")
	defer span.End()

	admin, err := r.next.GetAdminByEmail(ctx, email)
	recordError(span, err)
	return admin, err
}
