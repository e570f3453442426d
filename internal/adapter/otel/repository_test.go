package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/vendorhub/internal/adapter/otel"
	"github.com/neomorfeo/vendorhub/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock repositories ---

type mockRepo struct {
	vendors map[string]domain.Vendor
}

func newMockRepo() *mockRepo {
	return &mockRepo{vendors: make(map[string]domain.Vendor)}
}

func (m *mockRepo) Create(_ context.Context, v domain.Vendor) error {
	m.vendors[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (domain.Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return domain.Vendor{}, domain.ErrVendorNotFound
	}
	return v, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (domain.Vendor, error) {
	for _, v := range m.vendors {
		if v.Email == email {
			return v, nil
		}
	}
	return domain.Vendor{}, domain.ErrVendorNotFound
}

func (m *mockRepo) List(_ context.Context) ([]domain.Vendor, error) {
	out := make([]domain.Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		out = append(out, v)
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, v domain.Vendor) error {
	if _, ok := m.vendors[v.ID]; !ok {
		return domain.ErrVendorNotFound
	}
	m.vendors[v.ID] = v
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, v domain.Vendor, expected domain.Status, expectedActive bool) error {
	cur, ok := m.vendors[v.ID]
	if !ok {
		return domain.ErrVendorNotFound
	}
	if cur.Status != expected || cur.IsActive != expectedActive {
		return domain.ErrStatusChanged
	}
	m.vendors[v.ID] = v
	return nil
}

type mockAdminRepo struct {
	admins map[string]domain.Admin
}

func (m *mockAdminRepo) CreateAdmin(_ context.Context, a domain.Admin) error {
	m.admins[a.Email] = a
	return nil
}

func (m *mockAdminRepo) GetAdminByEmail(_ context.Context, email string) (domain.Admin, error) {
	a, ok := m.admins[email]
	if !ok {
		return domain.Admin{}, domain.ErrAdminNotFound
	}
	return a, nil
}

func testVendor(id string) domain.Vendor {
	return domain.NewVendor(id, domain.Profile{
		Name:        "Ravi Kumar",
		CompanyName: "Kumar Traders",
		CompanyType: domain.CompanyPVT,
		Email:       id + "@kumar.example",
	}, "hash")
}

// --- Tests ---

func TestTracingRepository_Create_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingRepository(newMockRepo())

	if err := repo.Create(context.Background(), testVendor("v-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "VendorRepository.Create" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "VendorRepository.Create")
	}

	assertAttribute(t, spans[0], "vendor.id", "v-1")
	assertAttribute(t, spans[0], "vendor.company_type", "PVT")
}

func TestTracingRepository_GetByID_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingRepository(newMockRepo())

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrVendorNotFound) {
		t.Fatalf("expected ErrVendorNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingRepository_GetByEmail_OmitsAddress(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	inner.vendors["v-1"] = testVendor("v-1")
	repo := adapter.NewTracingRepository(inner)

	got, err := repo.GetByEmail(context.Background(), "v-1@kumar.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "v-1" {
		t.Errorf("ID = %q, want %q", got.ID, "v-1")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	for _, attr := range spans[0].Attributes {
		if attr.Value.Emit() == "v-1@kumar.example" {
			t.Errorf("span attribute %q leaks the email address", attr.Key)
		}
	}
}

func TestTracingRepository_List_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	inner.vendors["v-1"] = testVendor("v-1")
	inner.vendors["v-2"] = testVendor("v-2")
	repo := adapter.NewTracingRepository(inner)

	vendors, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vendors) != 2 {
		t.Errorf("got %d vendors, want 2", len(vendors))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "result.count", "2")
}

func TestTracingRepository_Update_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	v := testVendor("v-1")
	inner.vendors["v-1"] = v
	repo := adapter.NewTracingRepository(inner)

	v.CompanyName = "Kumar & Sons"
	if err := repo.Update(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "VendorRepository.Update" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "VendorRepository.Update")
	}
}

func TestTracingRepository_UpdateStatus_RecordsTransition(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	v := testVendor("v-1")
	inner.vendors["v-1"] = v
	repo := adapter.NewTracingRepository(inner)

	next := v.WithStatus(domain.StatusPendingDeactivation, "admin-1", v.CreatedAt)
	if err := repo.UpdateStatus(context.Background(), next, domain.StatusActive, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "vendor.status.from", "active")
	assertAttribute(t, spans[0], "vendor.status.to", "pending_deactivation")
	assertAttribute(t, spans[0], "vendor.is_active.expected", "true")
}

func TestTracingRepository_UpdateStatus_RecordsConflict(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	v := testVendor("v-1")
	inner.vendors["v-1"] = v
	repo := adapter.NewTracingRepository(inner)

	next := v.WithStatus(domain.StatusPendingActivation, "admin-1", v.CreatedAt)
	err := repo.UpdateStatus(context.Background(), next, domain.StatusDeactivated, false)
	if !errors.Is(err, domain.ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("expected one errored span, got %+v", spans)
	}
}

func TestTracingAdminRepository(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingAdminRepository(&mockAdminRepo{admins: make(map[string]domain.Admin)})
	ctx := context.Background()

	admin := domain.Admin{ID: "a-1", Email: "root@vendorhub.example", Role: domain.RoleVendor}
	if err := repo.CreateAdmin(ctx, admin); err != nil {
		t.Fatalf("CreateAdmin failed: %v", err)
	}
	if _, err := repo.GetAdminByEmail(ctx, "ghost@vendorhub.example"); !errors.Is(err, domain.ErrAdminNotFound) {
		t.Fatalf("expected ErrAdminNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "AdminRepository.CreateAdmin" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "AdminRepository.CreateAdmin")
	}
	assertAttribute(t, spans[0], "admin.role", "vendor")
	if spans[1].Status.Code != codes.Error {
		t.Errorf("lookup span status = %v, want %v", spans[1].Status.Code, codes.Error)
	}
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
