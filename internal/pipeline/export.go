package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

const DefaultSheet = "Gefahrstoffkataster"

var KatasterHeader = []string{
	"Produktname / Handelsname",
	"Hersteller",
	"UN-Nr.",
	"Gefahren (H-Sätze)",
	"Piktogramme",
	"Lagerort",
	"Menge im Lager",
	"Besonderheiten",
	"SDS-Stand",
}

// RecordSink persists one finalized record at a time.
type RecordSink interface {
	Write(rec internal.Record) error
}

var ErrInsertRow = errors.New("insert row must be 0 (append) or a 1-based row")

// CheckInsertRow rejects negative rows.
func CheckInsertRow(row int) error {
	if row < 0 {
		return fmt.Errorf("%w: %d", ErrInsertRow, row)
	}
	return nil
}

// XLSXSink writes every record straight into the register workbook.
// InsertRow 0 appends.
type XLSXSink struct {
	Path      string
	Sheet     string
	InsertRow int
}

func (s XLSXSink) Write(rec internal.Record) error {
	return AppendOrInsert(s.Path, RowValues(rec), s.Sheet, s.InsertRow)
}

// RowValues lays a record out in register column order. Storage location,
// quantity and remarks stay blank for manual entry.
func RowValues(rec internal.Record) []any {
	return []any{
		util.Deref(rec.TradeName),
		util.Deref(rec.Manufacturer),
		util.Deref(rec.UNNumber),
		strings.Join(rec.HazardStatements.Sorted(), ", "),
		strings.Join(rec.Pictograms.Sorted(), ", "),
		"",
		"",
		"",
		util.Deref(rec.RevisionDate),
	}
}

// AppendOrInsert opens (or creates) the workbook, writes one row and saves.
// A new workbook or sheet gets the header row first. insertRow > 0 inserts
// at that 1-based row, never above row 2, shifting later rows down.
func AppendOrInsert(storePath string, values []any, sheet string, insertRow int) error {
	if err := CheckInsertRow(insertRow); err != nil {
		return err
	}
	if sheet == "" {
		sheet = DefaultSheet
	}

	var f *excelize.File
	_, err := os.Stat(storePath)
	switch {
	case err == nil:
		f, err = excelize.OpenFile(storePath)
		if err != nil {
			return fmt.Errorf("open workbook %s: %w", storePath, err)
		}
	case errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			_ = f.Close()
			return err
		}
		if err := writeHeader(f, sheet); err != nil {
			_ = f.Close()
			return err
		}
	default:
		return err
	}
	defer f.Close()

	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := writeHeader(f, sheet); err != nil {
			return err
		}
	}

	row := 0
	if insertRow > 0 {
		row = max(2, insertRow)
		if err := f.InsertRows(sheet, row, 1); err != nil {
			return fmt.Errorf("insert row %d: %w", row, err)
		}
	} else {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return err
		}
		row = len(rows) + 1
	}

	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(storePath)
}

func writeHeader(f *excelize.File, sheet string) error {
	for i, h := range KatasterHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecords reads the register back. Rows without a product name and
// manufacturer are ignored.
func ReadRecords(storePath, sheet string) ([]internal.Record, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}
	f, err := excelize.OpenFile(storePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	var out []internal.Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(col int) string {
			if col < len(row) {
				return row[col]
			}
			return ""
		}
		rec := internal.NewRecord()
		rec.TradeName = util.NonBlank(cell(0))
		rec.Manufacturer = util.NonBlank(cell(1))
		if rec.TradeName == nil && rec.Manufacturer == nil {
			continue
		}
		rec.UNNumber = util.NonBlank(cell(2))
		rec.HazardStatements = internal.NewCodeSet(strings.Split(cell(3), ",")...)
		rec.Pictograms = internal.NewCodeSet(strings.Split(cell(4), ",")...)
		rec.RevisionDate = util.NonBlank(cell(8))
		out = append(out, rec)
	}
	return out, nil
}

// ExportRecordsToXLSX writes records into a fresh workbook.
func ExportRecordsToXLSX(records []internal.Record, outputPath, sheet string) error {
	if _, err := os.Stat(outputPath); err == nil {
		if err := os.Remove(outputPath); err != nil {
			return err
		}
	}
	for _, rec := range records {
		if err := AppendOrInsert(outputPath, RowValues(rec), sheet, 0); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		f := excelize.NewFile()
		defer f.Close()
		if sheet == "" {
			sheet = DefaultSheet
		}
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return err
		}
		if err := writeHeader(f, sheet); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return err
		}
		return f.SaveAs(outputPath)
	}
	return nil
}
