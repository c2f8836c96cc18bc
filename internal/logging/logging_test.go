package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSetupDevMode(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	var buf bytes.Buffer
	Setup(&buf, true)

	slog.Debug("test debug")
	slog.Info("test info")

	if !bytes.Contains(buf.Bytes(), []byte("test debug")) {
		t.Error("expected debug message visible in dev mode")
	}
	if !bytes.Contains(buf.Bytes(), []byte("test info")) {
		t.Error("expected info message visible in dev mode")
	}
}

func TestSetupProdMode(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	var buf bytes.Buffer
	Setup(&buf, false)

	slog.Debug("hidden")
	slog.Info("prod test")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Error("expected debug suppressed in prod mode")
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"msg":"prod test"`)) {
		t.Errorf("expected JSON output, got %s", buf.String())
	}
}

func TestSetupCLIQuiet(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	var buf bytes.Buffer
	SetupCLI(&buf, false)

	slog.Info("client created")
	slog.Warn("location fix failed")

	if bytes.Contains(buf.Bytes(), []byte("client created")) {
		t.Error("expected info suppressed without --verbose")
	}
	if !bytes.Contains(buf.Bytes(), []byte("location fix failed")) {
		t.Error("expected warning visible")
	}
}

func newRouter(status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRequestLogger())
	handler := func(c *gin.Context) {
		c.Set(RequestTypeKey, "WHOAMI")
		c.Status(status)
	}
	r.POST("/", handler)
	r.GET("/health", handler)
	r.GET("/missing", handler)
	return r
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}

func TestGinRequestLogger(t *testing.T) {
	buf := captureLogs(t)

	rec := httptest.NewRecorder()
	newRouter(http.StatusOK).ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))

	if buf.Len() == 0 {
		t.Fatal("expected log output")
	}
	if !bytes.Contains(buf.Bytes(), []byte("POST")) {
		t.Error("expected method in log")
	}
	if !bytes.Contains(buf.Bytes(), []byte("type=WHOAMI")) {
		t.Errorf("expected request type in log, got %s", buf.String())
	}
}

func TestGinRequestLoggerSkipsHealth(t *testing.T) {
	buf := captureLogs(t)

	rec := httptest.NewRecorder()
	newRouter(http.StatusOK).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if buf.Len() > 0 {
		t.Error("expected no log for /health path")
	}
}

func TestGinRequestLoggerLevelByStatus(t *testing.T) {
	buf := captureLogs(t)

	rec := httptest.NewRecorder()
	newRouter(http.StatusNotFound).ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	if !bytes.Contains(buf.Bytes(), []byte("404")) {
		t.Error("expected 404 status in log")
	}
	if !bytes.Contains(buf.Bytes(), []byte("level=WARN")) {
		t.Errorf("expected warn level, got %s", buf.String())
	}
}
