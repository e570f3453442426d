package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/vendorhub/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks: Repository implements both persistence ports.
var (
	_ domain.VendorRepository = (*Repository)(nil)
	_ domain.AdminRepository  = (*Repository)(nil)
)

// Repository implements domain.VendorRepository and domain.AdminRepository using SQLite.
type Repository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := Configure(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewFromDB(db)
}

// pragmas are applied to every connection handed to the repository.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Configure prepares a SQLite handle for the repository and the River queue
// sharing it. A single connection avoids SQLITE_BUSY between the two and
// keeps ":memory:" databases shared across calls.
func Configure(db *sql.DB) error {
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return nil
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Repository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width so that text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000Z"

const vendorColumns = `id, name, company_name, company_type, gstin, contact_number, email,
	password, address, pincode, is_active, deactivation_status,
	deactivation_requested_by, deactivation_requested_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, v domain.Vendor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vendors (`+vendorColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.CompanyName, string(v.CompanyType), v.GSTIN, v.ContactNumber, v.Email,
		v.PasswordHash, v.Address, v.Pincode, v.IsActive, string(v.Status),
		nullString(v.StatusRequestedBy), nullTime(v.StatusRequestedAt),
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.EmailConflictError{Email: v.Email}
		}
		return &domain.StoreError{Op: "insert vendor", Err: err}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Vendor, error) {
	return scanVendor(r.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id,
	))
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.Vendor, error) {
	return scanVendor(r.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE email = ?`, email,
	))
}

func (r *Repository) List(ctx context.Context) ([]domain.Vendor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, &domain.StoreError{Op: "list vendors", Err: err}
	}
	defer rows.Close()

	vendors := make([]domain.Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "list vendors", Err: err}
	}
	return vendors, nil
}

// Update writes the profile and credential columns. Lifecycle columns are
// only written by UpdateStatus.
func (r *Repository) Update(ctx context.Context, v domain.Vendor) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE vendors
		 SET name = ?, company_name = ?, company_type = ?, gstin = ?, contact_number = ?,
		     email = ?, password = ?, address = ?, pincode = ?, updated_at = ?
		 WHERE id = ?`,
		v.Name, v.CompanyName, string(v.CompanyType), v.GSTIN, v.ContactNumber,
		v.Email, v.PasswordHash, v.Address, v.Pincode,
		formatTime(time.Now().UTC()), v.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.EmailConflictError{Email: v.Email}
		}
		return &domain.StoreError{Op: "update vendor", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return &domain.StoreError{Op: "update vendor", Err: err}
	}
	if rows == 0 {
		return domain.ErrVendorNotFound
	}

	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, v domain.Vendor, expected domain.Status, expectedActive bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE vendors
		 SET deactivation_status = ?, is_active = ?,
		     deactivation_requested_by = ?, deactivation_requested_at = ?, updated_at = ?
		 WHERE id = ? AND deactivation_status = ? AND is_active = ?`,
		string(v.Status), v.IsActive,
		nullString(v.StatusRequestedBy), nullTime(v.StatusRequestedAt), formatTime(time.Now().UTC()),
		v.ID, string(expected), expectedActive,
	)
	if err != nil {
		return &domain.StoreError{Op: "update vendor status", Err: err}
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return &domain.StoreError{Op: "update vendor status", Err: err}
	}
	if rows > 0 {
		return nil
	}

	// Nothing matched: either the vendor is gone or its status moved on.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM vendors WHERE id = ?`, v.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrVendorNotFound
	}
	if err != nil {
		return &domain.StoreError{Op: "update vendor status", Err: err}
	}
	return domain.ErrStatusChanged
}

func (r *Repository) CreateAdmin(ctx context.Context, a domain.Admin) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (id, name, email, password, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), formatTime(a.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.EmailConflictError{Email: a.Email}
		}
		return &domain.StoreError{Op: "insert admin", Err: err}
	}
	return nil
}

func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	var a domain.Admin
	var role, createdAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password, role, created_at FROM admins WHERE email = ?`, email,
	).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Admin{}, domain.ErrAdminNotFound
		}
		return domain.Admin{}, &domain.StoreError{Op: "get admin", Err: err}
	}

	// An unknown stored role yields an actor that fails authorization.
	a.Role = domain.Role(role)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanVendor scans one vendor from either *sql.Row or *sql.Rows.
func scanVendor(row rowScanner) (domain.Vendor, error) {
	var v domain.Vendor
	var companyType, status, createdAt, updatedAt string
	var requestedBy, requestedAt sql.NullString

	err := row.Scan(
		&v.ID, &v.Name, &v.CompanyName, &companyType, &v.GSTIN, &v.ContactNumber, &v.Email,
		&v.PasswordHash, &v.Address, &v.Pincode, &v.IsActive, &status,
		&requestedBy, &requestedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Vendor{}, domain.ErrVendorNotFound
		}
		return domain.Vendor{}, &domain.StoreError{Op: "scan vendor", Err: err}
	}

	v.CompanyType = domain.CompanyType(companyType)
	v.Status = domain.Status(status)
	v.StatusRequestedBy = requestedBy.String
	if requestedAt.Valid {
		v.StatusRequestedAt = parseTime(requestedAt.String)
	}
	v.CreatedAt = parseTime(createdAt)
	v.UpdatedAt = parseTime(updatedAt)

	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
