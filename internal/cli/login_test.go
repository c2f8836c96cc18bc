package cli

import (
	"context"
	"testing"

	"github.com/evcraddock/fieldtrack/internal/gateway"
)

func TestValidateEmployeeID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid id", "EMP001", false},
		{"empty id", "", true},
		{"inner space", "EMP 001", true},
		{"tab", "EMP\t001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEmployeeID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEmployeeID(%q) err = %v, wantErr = %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestLoginSavesIdentity(t *testing.T) {
	newTestGateway(t)

	if err := runLogin(context.Background(), " A1 ", ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EmployeeID != "A1" || cfg.Name != "Asha" || cfg.Role != gateway.RoleAdmin {
		t.Errorf("config = %+v", cfg)
	}
	// Server URL came from the environment, not --server.
	if cfg.ServerURL != "" {
		t.Errorf("server_url = %q, want empty", cfg.ServerURL)
	}
}

func TestLoginServerFlagIsSaved(t *testing.T) {
	newTestGateway(t)
	url := getServerURL()
	t.Setenv("FT_SERVER_URL", "http://localhost:1")

	if err := runLogin(context.Background(), "E1", url); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != url {
		t.Errorf("server_url = %q, want %q", cfg.ServerURL, url)
	}
}

func TestLoginUnknownEmployee(t *testing.T) {
	newTestGateway(t)

	err := runLogin(context.Background(), "NOPE", "")
	if err == nil {
		t.Fatal("expected error for unknown employee")
	}
	if err.Error() != "Invalid Employee ID" {
		t.Errorf("err = %q, want remote message", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EmployeeID != "" {
		t.Errorf("employee_id = %q, want empty after failed login", cfg.EmployeeID)
	}
}
