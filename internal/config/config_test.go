package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("EXTRACT_FORMAT", "lechler")
	t.Setenv("INSERT_ROW", "5")
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("DOC_EXTENSIONS", "PDF, .htm,html")
	t.Setenv("MAIL_LISTENER_FETCH_MAX", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ExtractFormat != "lechler" || cfg.InsertRow != 5 || cfg.IMAPSecure {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if strings.Join(cfg.DocExtensions, " ") != ".pdf .htm .html" {
		t.Fatalf("extensions=%v", cfg.DocExtensions)
	}
	if cfg.MailListenerFetchMax != 20 {
		t.Fatalf("fetch max=%d", cfg.MailListenerFetchMax)
	}
	if cfg.SheetName != "Gefahrstoffkataster" || cfg.TextBackend != "rows" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestRequire(t *testing.T) {
	var cfg Config
	if err := cfg.Require("IMAP_HOST", " "); err == nil || !strings.Contains(err.Error(), "IMAP_HOST") {
		t.Fatalf("err=%v", err)
	}
	if err := cfg.Require("IMAP_HOST", "mail.example.com"); err != nil {
		t.Fatal(err)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: "warn", LogFormat: "json"}.Logger(&buf)
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled")
	}
	logger.Warn("scan.dir.error", "dir", "x")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"scan.dir.error"`) {
		t.Fatalf("output=%q", buf.String())
	}
}
