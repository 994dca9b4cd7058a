package migrate

import (
	"strings"
	"testing"
)

func TestRun_Failure_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("expected error for empty DSN")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error = %q, want mention of DATABASE_URL", err)
	}
}

func TestRun_Failure_BadDirection(t *testing.T) {
	err := Run("postgres://localhost/db", "sideways")
	if err == nil {
		t.Fatal("expected error for bad direction")
	}
	if !strings.Contains(err.Error(), "direction") {
		t.Errorf("error = %q, want direction complaint", err)
	}
}
