package sds

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sdskataster/internal/util"
)

type stubSource struct {
	pages []string
	err   error
}

func (s stubSource) Name() string { return "stub" }

func (s stubSource) Pages(string) ([]string, error) { return s.pages, s.err }

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"", "default", " Lechler ", "3M", "basf", "fallback"} {
		if _, err := ParseFormat(in); err != nil {
			t.Fatalf("%q: %v", in, err)
		}
	}
	if f, _ := ParseFormat(""); f != FormatDefault {
		t.Fatalf("empty format=%s", f)
	}
	if _, err := ParseFormat("sika"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewExtractorRejectsUnknownFormat(t *testing.T) {
	if _, err := NewExtractor("sika", stubSource{}, nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := NewExtractor(FormatDefault, nil, nil); err == nil {
		t.Fatalf("expected error without source")
	}
}

func TestExtractorNormalizesPages(t *testing.T) {
	src := stubSource{pages: []string{
		"ABSCHNITT 1: Bezeichnung\nHandelsname:   Grund-\nierung  X\n\n",
		"",
		"ABSCHNITT 2: Gefahren\nH315\nABSCHNITT 14: Transport\nUN 1133",
	}}
	ex, err := NewExtractor(FormatDefault, src, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Format() != FormatDefault {
		t.Fatalf("format=%s", ex.Format())
	}
	rec, err := ex.Extract("doc.pdf")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if util.Deref(rec.TradeName) != "Grundierung X" {
		t.Fatalf("trade_name=%q", util.Deref(rec.TradeName))
	}
	if util.Deref(rec.UNNumber) != "UN1133" {
		t.Fatalf("un=%q", util.Deref(rec.UNNumber))
	}
	if !rec.Pictograms.Has("GHS07") {
		t.Fatalf("pictograms=%v", rec.Pictograms.Sorted())
	}
}

func TestExtractorFailureYieldsEmptyRecord(t *testing.T) {
	boom := errors.New("broken xref")
	for _, format := range Formats() {
		ex, err := NewExtractor(format, stubSource{err: boom}, nil)
		if err != nil {
			t.Fatal(err)
		}
		rec, err := ex.Extract(filepath.Join(t.TempDir(), "missing.pdf"))
		if !errors.Is(err, boom) {
			t.Fatalf("%s: err=%v", format, err)
		}
		if rec.TradeName != nil || rec.Manufacturer != nil || rec.UNNumber != nil || rec.RevisionDate != nil {
			t.Fatalf("%s: expected absent fields, got %+v", format, rec)
		}
		if rec.HazardStatements == nil || rec.HazardStatements.Len() != 0 || rec.Pictograms.Len() != 0 {
			t.Fatalf("%s: expected empty sets", format)
		}
	}
}

func TestLechlerFallsBackToSimpleExtraction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdb.html")
	html := "<p>Handelsname: LECHSYS PRIMER</p><p>ABSCHNITT 2: Gefahren H225</p>"
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	ex, err := NewExtractor(FormatLechler, stubSource{err: errors.New("layout failed")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := ex.Extract(path)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if util.Deref(rec.TradeName) != "LECHSYS PRIMER" {
		t.Fatalf("trade_name=%q", util.Deref(rec.TradeName))
	}
	if !rec.HazardStatements.Has("H225") {
		t.Fatalf("hazards=%v", rec.HazardStatements.Sorted())
	}
}
