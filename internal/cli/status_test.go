package cli

import (
	"context"
	"testing"
)

func TestStatusNoEmployee(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FT_EMPLOYEE_ID", "")
	t.Setenv("FT_SERVER_URL", "http://localhost:9999")

	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status with no employee: %v", err)
	}
}

func TestStatusUnreachableServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FT_EMPLOYEE_ID", "E1")
	t.Setenv("FT_SERVER_URL", "http://127.0.0.1:1")

	// Should not return error, just prints status
	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestStatusWithServer(t *testing.T) {
	newTestGateway(t)
	t.Setenv("FT_EMPLOYEE_ID", "E1")

	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
}

func TestStatusUnknownEmployee(t *testing.T) {
	newTestGateway(t)
	t.Setenv("FT_EMPLOYEE_ID", "GONE")

	if err := runStatus(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
}
