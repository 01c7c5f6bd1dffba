package sds

import (
	"os"
	"path/filepath"
	"testing"

	"sdskataster/internal"
)

func TestDefaultTableDerive(t *testing.T) {
	got := DefaultTable.Derive(internal.NewCodeSet("H225", "H317", "H319"))
	want := internal.NewCodeSet("GHS02", "GHS07", "GHS08")
	if !got.Equal(want) {
		t.Fatalf("got=%v", got.Sorted())
	}
}

func TestDeriveUnknownCodesContributeNothing(t *testing.T) {
	if got := DefaultTable.Derive(internal.NewCodeSet("H999", "H304")); got.Len() != 0 {
		t.Fatalf("got=%v", got.Sorted())
	}
	if got := DefaultTable.Derive(internal.NewCodeSet("H999", "H400")); !got.Equal(internal.NewCodeSet("GHS09")) {
		t.Fatalf("got=%v", got.Sorted())
	}
}

// Every hazard code in the table must derive at least one pictogram, so a
// record made only of known codes never ends up without pictograms.
func TestEveryTableEntryDerivesPictograms(t *testing.T) {
	codes := DefaultTable.HazardCodes()
	if len(codes) != 30 {
		t.Fatalf("len=%d", len(codes))
	}
	for _, h := range codes {
		if DefaultTable.Derive(internal.NewCodeSet(h)).Len() == 0 {
			t.Fatalf("%s derives nothing", h)
		}
	}
}

func TestParsePictogramTableRejectsBadCodes(t *testing.T) {
	if _, err := ParsePictogramTable([]byte("g:\n  H31: [GHS07]\n")); err == nil {
		t.Fatalf("expected hazard code error")
	}
	if _, err := ParsePictogramTable([]byte("g:\n  H315: [GHS7]\n")); err == nil {
		t.Fatalf("expected pictogram error")
	}
	if _, err := ParsePictogramTable([]byte("- not a map")); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestLoadPictogramTable(t *testing.T) {
	tbl, err := LoadPictogramTable("")
	if err != nil || tbl != DefaultTable {
		t.Fatalf("empty path should give default table")
	}

	path := filepath.Join(t.TempDir(), "table.yaml")
	if err := os.WriteFile(path, []byte("custom:\n  H304: [GHS08]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tbl, err = LoadPictogramTable(path)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !tbl.Has("H304") || tbl.Has("H315") {
		t.Fatalf("codes=%v", tbl.HazardCodes())
	}
	if _, err := LoadPictogramTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
