package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

func readSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func namedRecord(name string) internal.Record {
	rec := fullRecord("H319", "H225")
	rec.TradeName = sp(name)
	return rec
}

func TestRowValuesOrder(t *testing.T) {
	rec := namedRecord("Lack")
	rec.Pictograms = internal.NewCodeSet("GHS07", "GHS02")
	v := RowValues(rec)
	if len(v) != len(KatasterHeader) {
		t.Fatalf("len=%d", len(v))
	}
	if v[0] != "Lack" || v[1] != "Muster GmbH" || v[2] != "UN1263" {
		t.Fatalf("unexpected values: %v", v)
	}
	if v[3] != "H225, H319" || v[4] != "GHS02, GHS07" {
		t.Fatalf("codes=%v / %v", v[3], v[4])
	}
	if v[5] != "" || v[6] != "" || v[7] != "" || v[8] != "2023-05-01" {
		t.Fatalf("unexpected tail: %v", v[5:])
	}
}

func TestXLSXSinkAppendCreatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "kataster.xlsx")
	sink := XLSXSink{Path: path}
	for _, name := range []string{"A", "B"} {
		if err := sink.Write(namedRecord(name)); err != nil {
			t.Fatal(err)
		}
	}
	rows := readSheet(t, path, DefaultSheet)
	if len(rows) != 3 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[0][0] != KatasterHeader[0] || rows[0][8] != "SDS-Stand" {
		t.Fatalf("header=%v", rows[0])
	}
	if rows[1][0] != "A" || rows[2][0] != "B" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestAppendOrInsertClampsAndShifts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kataster.xlsx")
	for _, name := range []string{"first", "second"} {
		if err := AppendOrInsert(path, RowValues(namedRecord(name)), "", 0); err != nil {
			t.Fatal(err)
		}
	}
	// Row 1 is the header, so an insert at row 1 lands on row 2.
	if err := AppendOrInsert(path, RowValues(namedRecord("top")), "", 1); err != nil {
		t.Fatal(err)
	}
	if err := AppendOrInsert(path, RowValues(namedRecord("middle")), "", 3); err != nil {
		t.Fatal(err)
	}

	rows := readSheet(t, path, DefaultSheet)
	want := []string{KatasterHeader[0], "top", "middle", "first", "second"}
	if len(rows) != len(want) {
		t.Fatalf("len=%d", len(rows))
	}
	for i, w := range want {
		if rows[i][0] != w {
			t.Fatalf("row %d: got %q want %q", i+1, rows[i][0], w)
		}
	}
}

func TestAppendOrInsertNewSheetGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kataster.xlsx")
	if err := AppendOrInsert(path, RowValues(namedRecord("A")), "", 0); err != nil {
		t.Fatal(err)
	}
	if err := AppendOrInsert(path, RowValues(namedRecord("B")), "Lager 2", 0); err != nil {
		t.Fatal(err)
	}
	rows := readSheet(t, path, "Lager 2")
	if len(rows) != 2 || rows[0][0] != KatasterHeader[0] || rows[1][0] != "B" {
		t.Fatalf("rows=%v", rows)
	}
}

func TestReadRecordsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kataster.xlsx")
	in := []internal.Record{namedRecord("A"), namedRecord("B")}
	in[1].UNNumber = nil
	if err := ExportRecordsToXLSX(in, path, ""); err != nil {
		t.Fatal(err)
	}
	out, err := ReadRecords(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("len=%d", len(out))
	}
	if util.Deref(out[0].TradeName) != "A" || !out[0].HazardStatements.Equal(in[0].HazardStatements) {
		t.Fatalf("unexpected record: %+v", out[0])
	}
	if out[1].UNNumber != nil {
		t.Fatalf("un=%q", *out[1].UNNumber)
	}
}

func TestExportRecordsEmptyWritesHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := ExportRecordsToXLSX(nil, path, ""); err != nil {
		t.Fatal(err)
	}
	rows := readSheet(t, path, DefaultSheet)
	if len(rows) != 1 {
		t.Fatalf("len=%d", len(rows))
	}
}

func TestAppendOrInsertRejectsNegativeRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kataster.xlsx")
	err := AppendOrInsert(path, RowValues(namedRecord("A")), "", -1)
	if !errors.Is(err, ErrInsertRow) {
		t.Fatalf("err=%v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("workbook written: %v", err)
	}
	if err := CheckInsertRow(0); err != nil {
		t.Fatal(err)
	}
}
