package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpCapturesPgxFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_service_requests_idempotency", TableName: "service_requests"}
	err := Wrap(CodeWrite, fmt.Errorf("insert: %w", pgErr), "create request")

	d := Dump(err)
	if d.Code != CodeWrite || !d.Retryable {
		t.Fatalf("unexpected code/retryable: %+v", d)
	}
	if d.PGCode != "23505" || d.PGConstraint != "ux_service_requests_idempotency" || d.PGTable != "service_requests" {
		t.Fatalf("pg fields not captured: %+v", d)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestPostgresCodeFromPQ(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pq.Error{Code: "40001"})
	if got := PostgresCode(err); got != "40001" {
		t.Fatalf("expected 40001, got %q", got)
	}
	if got := PostgresCode(fmt.Errorf("plain")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
