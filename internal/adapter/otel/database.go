package otel

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/neomorfeo/vendorhub/internal/adapter/sqlite"
)

// OpenDB opens the vendor database with OpenTelemetry instrumentation.
// Every statement gets a span and the connection pool reports metrics.
// The handle is configured for sharing between the repository and River.
func OpenDB(path string) (*sql.DB, error) {
	attrs := []attribute.KeyValue{
		semconv.DBSystemSqlite,
		attribute.String("db.namespace", path),
	}

	db, err := otelsql.Open("sqlite", path,
		otelsql.WithAttributes(attrs...),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			// Statement spans only.
			OmitRows:             true,
			OmitConnResetSession: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("opening instrumented database: %w", err)
	}

	if err := sqlite.Configure(db); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(attrs...)); err != nil {
		db.Close()
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return db, nil
}
