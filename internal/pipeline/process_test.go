package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"sdskataster/internal"
	"sdskataster/internal/config"
	"sdskataster/internal/sds"
	"sdskataster/internal/storage"
	"sdskataster/internal/util"
)

type stubExtractor map[string]internal.Record

func (stubExtractor) Format() sds.Format { return sds.FormatDefault }

func (s stubExtractor) Extract(path string) (internal.Record, error) {
	rec, ok := s[filepath.Base(path)]
	if !ok {
		return internal.NewRecord(), errors.New("no text")
	}
	return rec, nil
}

type memorySink struct{ records []internal.Record }

func (m *memorySink) Write(rec internal.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func quietService(db *storage.DB, ext sds.Extractor, sink RecordSink) *ProcessingService {
	svc := NewProcessingService(db, config.Config{DocExtensions: []string{".pdf"}}, ext, sink)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc.Logger = logger
	svc.Reporter = NewReporter(io.Discard, logger)
	return svc
}

func TestProcessRootWritesAndRecordsRun(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "sds")
	touch(t, filepath.Join(root, "Supplier", "Line", "a.pdf"))
	touch(t, filepath.Join(root, "Supplier", "Line", "b.pdf"))
	touch(t, filepath.Join(root, "Other", "broken.pdf"))

	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ext := stubExtractor{
		"a.pdf": fullRecord("H225", "H319"),
		"b.pdf": fullRecord("H319", "H225"),
	}
	sink := &memorySink{}
	svc := quietService(db, ext, sink)

	res, err := svc.ProcessRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Documents != 3 || res.Failed != 1 || res.Emitted != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(sink.records) != 1 || util.Deref(sink.records[0].TradeName) != "Supplier Line" {
		t.Fatalf("records=%+v", sink.records)
	}

	run, err := db.GetRun(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.FinishedAt == nil || run.Counts["emitted"] != 1 {
		t.Fatalf("run=%+v", run)
	}
	docs, err := db.ListDocuments(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("len=%d", len(docs))
	}
	emissions, err := db.ListEmissions(res.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(emissions) != 1 || emissions[0].DocumentID == nil || emissions[0].Directory != "Supplier/Line" {
		t.Fatalf("emissions=%+v", emissions)
	}

	out := filepath.Join(tmp, "export.xlsx")
	n, err := ExportRun(db, res.RunID, out, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("exported=%d", n)
	}
	rows := readSheet(t, out, DefaultSheet)
	if len(rows) != 2 || rows[1][0] != "Supplier Line" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestProcessRootSkipUnchanged(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "sds")
	touch(t, filepath.Join(root, "S", "a.pdf"))

	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	sink := &memorySink{}
	svc := quietService(db, stubExtractor{"a.pdf": fullRecord("H225")}, sink)
	svc.SkipUnchanged = true

	if _, err := svc.ProcessRoot(root); err != nil {
		t.Fatal(err)
	}
	res, err := svc.ProcessRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Unchanged != 1 || res.Emitted != 0 || len(sink.records) != 1 {
		t.Fatalf("unexpected result: %+v (records=%d)", res, len(sink.records))
	}
}

func TestProcessRootWithoutLedger(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "S", "a.pdf"))
	sink := &memorySink{}
	res, err := quietService(nil, stubExtractor{"a.pdf": fullRecord("H225")}, sink).ProcessRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.RunID != 0 || len(sink.records) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestProcessRootInvalidRoot(t *testing.T) {
	_, err := quietService(nil, stubExtractor{}, &memorySink{}).ProcessRoot(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("err=%v", err)
	}
}

func TestProcessRootDoesNotRepeatWrittenSignatures(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "inbox")
	touch(t, filepath.Join(root, "lack.de", "Sicherheitsdatenblatt", "a.pdf"))

	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ext := stubExtractor{
		"a.pdf":   fullRecord("H225"),
		"a_2.pdf": fullRecord("H225"),
		"b.pdf":   fullRecord("H300", "H310"),
	}
	sink := &memorySink{}
	svc := quietService(db, ext, sink)
	svc.SkipUnchanged = true

	if _, err := svc.ProcessRoot(root); err != nil {
		t.Fatal(err)
	}

	// A later mail with the same subject lands in the same folder.
	touch(t, filepath.Join(root, "lack.de", "Sicherheitsdatenblatt", "b.pdf"))
	res, err := svc.ProcessRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Unchanged != 0 || res.Emitted != 1 || res.Repeated != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(sink.records) != 2 || !sink.records[1].HazardStatements.Equal(internal.NewCodeSet("H300", "H310")) {
		t.Fatalf("records=%+v", sink.records)
	}

	// A newer revision of the first product.
	touch(t, filepath.Join(root, "lack.de", "Sicherheitsdatenblatt", "a_2.pdf"))
	res, err = svc.ProcessRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Emitted != 0 || len(sink.records) != 2 {
		t.Fatalf("unexpected result: %+v (records=%d)", res, len(sink.records))
	}
}

func TestFileSHA256MissingFile(t *testing.T) {
	if _, err := fileSHA256(filepath.Join(t.TempDir(), "gone.pdf")); err == nil {
		t.Fatal("expected error")
	}
}

func TestProcessRootDoesNotFingerprintUnreadableFiles(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	tmp := t.TempDir()
	root := filepath.Join(tmp, "sds")
	locked := filepath.Join(root, "S", "a.pdf")
	touch(t, locked)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0o644)

	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	svc := quietService(db, stubExtractor{}, &memorySink{})
	svc.SkipUnchanged = true
	for i := 0; i < 2; i++ {
		res, err := svc.ProcessRoot(root)
		if err != nil {
			t.Fatal(err)
		}
		if res.Unchanged != 0 || res.Documents != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
	}
	dir, _ := filepath.Abs(filepath.Join(root, "S"))
	if v, err := db.GetMetadata("dir:" + dir); err != nil || v != nil {
		t.Fatalf("fingerprint=%v err=%v", v, err)
	}
}
