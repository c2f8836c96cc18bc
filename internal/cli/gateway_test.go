package cli

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/evcraddock/fieldtrack/internal/db"
	"github.com/evcraddock/fieldtrack/internal/devgateway"
	"github.com/evcraddock/fieldtrack/internal/gateway"
)

// newTestGateway starts a development gateway with one employee (E1) and
// one admin (A1), and points the CLI at it through a temp HOME.
func newTestGateway(t *testing.T) *devgateway.Store {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d, err := db.Open(filepath.Join(t.TempDir(), "gateway.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	srv := devgateway.NewServer(d)
	ctx := context.Background()
	if err := srv.Store().PutEmployee(ctx, "E1", "Ravi", gateway.RoleEmployee); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := srv.Store().PutEmployee(ctx, "A1", "Asha", gateway.RoleAdmin); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("FT_SERVER_URL", ts.URL)
	t.Setenv("FT_EMPLOYEE_ID", "")
	return srv.Store()
}

func TestGatewayEmployeeAddAndList(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REDIS_HOST", "")
	path := filepath.Join(t.TempDir(), "gw.db")

	if _, err := executeCommand("gateway", "employee", "add", "E9", "Kiran", "--admin", "--gateway-db", path); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := executeCommand("gateway", "employee", "list", "--gateway-db", path); err != nil {
		t.Fatalf("list: %v", err)
	}

	store, done, err := openGatewayStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer done()

	ident, err := store.Employee(context.Background(), "E9")
	if err != nil {
		t.Fatalf("employee: %v", err)
	}
	if ident.Name != "Kiran" || ident.Role != gateway.RoleAdmin {
		t.Errorf("identity = %+v", ident)
	}
}

func TestGatewayEmployeeAddRejectsBadID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "gw.db")

	if _, err := executeCommand("gateway", "employee", "add", "E 9", "Kiran", "--gateway-db", path); err == nil {
		t.Error("expected error for employee ID with whitespace")
	}
}

type recordingCache struct {
	devgateway.IdentityCache
	invalidated []string
	closed      bool
}

func (r *recordingCache) Invalidate(ctx context.Context, employeeID string) {
	r.invalidated = append(r.invalidated, employeeID)
}

func (r *recordingCache) Close() error {
	r.closed = true
	return nil
}

func TestGatewayEmployeeAddInvalidatesCache(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REDIS_HOST", "cache.internal")
	path := filepath.Join(t.TempDir(), "gw.db")

	rec := &recordingCache{}
	var gotHost string
	newIdentityCache = func(host, password string) (devgateway.IdentityCache, error) {
		gotHost = host
		return rec, nil
	}
	t.Cleanup(func() { newIdentityCache = devgateway.NewRedisCache })

	if _, err := executeCommand("gateway", "employee", "add", "A1", "Asha", "--gateway-db", path); err != nil {
		t.Fatalf("add: %v", err)
	}

	if gotHost != "cache.internal" {
		t.Errorf("host = %q, want cache.internal", gotHost)
	}
	if len(rec.invalidated) != 1 || rec.invalidated[0] != "A1" {
		t.Errorf("invalidated = %v, want [A1]", rec.invalidated)
	}
	if !rec.closed {
		t.Error("expected cache to be closed")
	}
}

func TestGatewayEmployeeAddCacheUnavailable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REDIS_HOST", "cache.internal")
	path := filepath.Join(t.TempDir(), "gw.db")

	newIdentityCache = func(host, password string) (devgateway.IdentityCache, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { newIdentityCache = devgateway.NewRedisCache })

	// The employee is still saved.
	if _, err := executeCommand("gateway", "employee", "add", "E5", "Dev", "--gateway-db", path); err != nil {
		t.Fatalf("add: %v", err)
	}

	store, done, err := openGatewayStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer done()
	if _, err := store.Employee(context.Background(), "E5"); err != nil {
		t.Errorf("employee: %v", err)
	}
}
