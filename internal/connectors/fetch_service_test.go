package connectors

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"sdskataster/internal"
	"sdskataster/internal/storage"
)

type stubConnector []internal.FetchedMailMessage

func (s stubConnector) FetchInbox(_ context.Context, _ string, max int) ([]internal.FetchedMailMessage, error) {
	if len(s) > max {
		return s[:max], nil
	}
	return s, nil
}

func TestFetchAndStore(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	msgs := stubConnector{
		{Provider: ProviderIMAP, MessageID: "<a@x>", Subject: "SDB", From: "a@x", ReceivedAt: "2026-01-01T00:00:00Z", Raw: []byte("Subject: SDB\r\n\r\nhi")},
		{Provider: ProviderIMAP, MessageID: "<b@x>", Subject: "SDS", From: "b@x", ReceivedAt: "2026-01-02T00:00:00Z", Raw: []byte("Subject: SDS\r\n\r\nho")},
	}
	svc := NewFetchService(db, filepath.Join(tmp, "raw"), msgs)
	svc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	res, err := svc.FetchAndStore(context.Background(), "INBOX", 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 2 || res.Stored != 2 || res.Known != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	row, err := db.MustEmailByProviderMessageID(ProviderIMAP, "<a@x>")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(row.RawRef); err != nil {
		t.Fatalf("raw message not stored: %v", err)
	}
	if err := db.UpdateEmailStatus(row.ID, "filed"); err != nil {
		t.Fatal(err)
	}

	res, err = svc.FetchAndStore(context.Background(), "INBOX", 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stored != 0 || res.Known != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	row, err = db.MustEmailByProviderMessageID(ProviderIMAP, "<a@x>")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "filed" {
		t.Fatalf("status=%s", row.Status)
	}
}

func TestParseProvider(t *testing.T) {
	if p, err := ParseProvider(" IMAP "); err != nil || p != ProviderIMAP {
		t.Fatalf("p=%q err=%v", p, err)
	}
	if _, err := ParseProvider("pop3"); err == nil {
		t.Fatal("expected error")
	}
}
