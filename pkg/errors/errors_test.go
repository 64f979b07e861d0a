package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeInvalidSortPath, status: http.StatusBadRequest, publicMsg: "invalid sort path", detailsOK: true},
		{code: CodeInvalidPagination, status: http.StatusBadRequest, publicMsg: "invalid pagination settings", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeObserver, status: http.StatusInternalServerError, publicMsg: "lifecycle observer failed"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeInvalidSortPath, "unknown member Bogus")
	if base.Code() != CodeInvalidSortPath {
		t.Fatalf("expected sort path code, got %s", base.Code())
	}
	if base.Message() != "unknown member Bogus" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	base.WithDetails(map[string]any{"path": "Bogus"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeObserver, cause, "BeforeSave observer 1 failed")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeObserver {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "entity not found"))
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCodeWalksNestedCodedErrors(t *testing.T) {
	inner := New(CodeInvalidSortPath, "bad path")
	outer := Wrap(CodeValidation, inner, "bad request")

	if !HasCode(outer, CodeValidation) {
		t.Fatalf("expected outer code to match")
	}
	if !HasCode(outer, CodeInvalidSortPath) {
		t.Fatalf("expected nested code to match")
	}
	if HasCode(outer, CodeNotFound) {
		t.Fatalf("unexpected match for absent code")
	}
	if HasCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpExtractsPostgresDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_customers_email", TableName: "customers"}
	dump := Dump(Wrap(CodeConflict, pgErr, "insert customer"))

	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "ux_customers_email" || dump.PGTable != "customers" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}

func TestPGCodeSupportsBothDrivers(t *testing.T) {
	if got := PGCode(&pgconn.PgError{Code: "23505"}); got != "23505" {
		t.Fatalf("pgx code mismatch: %q", got)
	}
	if got := PGCode(fmt.Errorf("wrapped: %w", &pq.Error{Code: "23503"})); got != "23503" {
		t.Fatalf("pq code mismatch: %q", got)
	}
	if got := PGCode(stdErrors.New("sqlite")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
