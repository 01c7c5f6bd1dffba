package pipeline

import (
	"fmt"
	"strings"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

// Directory is one folder whose documents are grouped together.
type Directory struct {
	Path string // absolute path
	Rel  string // slash separated, relative to the scan root
	Name string // leaf name
}

// DocumentRecord is the extraction result of one file.
type DocumentRecord struct {
	Path   string
	Record internal.Record
	Err    error
}

// Emission is a record cleared for the register. Doc indexes the source
// document in the slice passed to GroupDirectory.
type Emission struct {
	Record internal.Record
	Doc    int
}

type Decision struct {
	Directory   Directory
	Emit        []Emission
	Skipped     int
	Dropped     int
	Diagnostics []Diagnostic
}

// Fields that may be absent on a record that is still written.
var allowedMissing = map[string]bool{
	internal.FieldUNNumber:     true,
	internal.FieldTradeName:    true,
	internal.FieldPictograms:   true,
	internal.FieldRevisionDate: true,
}

// GroupDirectory decides which records of one directory are written and
// under which name. Identical hazard signatures mean the same product: one
// signature yields the first record, several signatures keep only the
// records whose signature is unique and drop the rest.
func GroupDirectory(dir Directory, docs []DocumentRecord) Decision {
	d := Decision{Directory: dir}
	if len(docs) == 0 {
		return d
	}

	counts := map[string]int{}
	for _, doc := range docs {
		counts[doc.Record.Signature()]++
	}

	var keep []int
	if len(counts) == 1 {
		keep = []int{0}
	} else {
		for i, doc := range docs {
			if counts[doc.Record.Signature()] == 1 {
				keep = append(keep, i)
			}
		}
		d.Dropped = len(docs) - len(keep)
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Subject:  dir.Path,
			Message: fmt.Sprintf("%d hazard profiles in %s: keeping %d, dropping %d duplicates",
				len(counts), dir.Path, len(keep), d.Dropped),
		})
	}

	name := DisplayName(dir)
	for _, i := range keep {
		rec := docs[i].Record.Clone()
		rec.TradeName = util.StringPtr(name)

		missing := Missing(rec)
		if Eligible(missing) {
			d.Emit = append(d.Emit, Emission{Record: rec, Doc: i})
			d.Diagnostics = append(d.Diagnostics, Diagnostic{
				Severity: SeverityInfo,
				Subject:  docs[i].Path,
				Message:  fmt.Sprintf("Writing '%s' from %s", name, docs[i].Path),
			})
			continue
		}

		d.Skipped++
		if len(Missing(docs[i].Record)) == len(internal.RecordFields) {
			d.Diagnostics = append(d.Diagnostics, Diagnostic{
				Severity: SeveritySkip,
				Subject:  dir.Path,
				Message:  fmt.Sprintf("Not writing '%s': nothing usable extracted from %s", dir.Path, docs[i].Path),
				Fields:   internal.RecordFields,
			})
			continue
		}
		d.Diagnostics = append(d.Diagnostics, Diagnostic{
			Severity: SeveritySkip,
			Subject:  dir.Path,
			Message:  fmt.Sprintf("Not writing '%s' due to missing fields: %s", dir.Path, strings.Join(missing, ", ")),
			Fields:   missing,
		})
	}
	return d
}

// DisplayName joins the first path segment below the scan root, the parent
// segment when it differs from both neighbours, and the leaf.
func DisplayName(dir Directory) string {
	var parts []string
	if rel := strings.Trim(dir.Rel, "/"); rel != "" && rel != "." {
		parts = strings.Split(rel, "/")
	}
	leaf := dir.Name
	if leaf == "" && len(parts) > 0 {
		leaf = parts[len(parts)-1]
	}

	first := leaf
	if len(parts) > 0 {
		first = parts[0]
	}
	sub := ""
	if len(parts) >= 2 {
		sub = parts[len(parts)-2]
	}

	out := []string{first}
	if sub != "" && sub != first && sub != leaf {
		out = append(out, sub)
	}
	out = append(out, leaf)
	return strings.Join(out, " ")
}

// Missing lists absent fields in report order. Strings count as missing
// when blank, sets when empty.
func Missing(rec internal.Record) []string {
	var out []string
	for _, field := range internal.RecordFields {
		var absent bool
		switch field {
		case internal.FieldTradeName:
			absent = util.IsBlank(rec.TradeName)
		case internal.FieldManufacturer:
			absent = util.IsBlank(rec.Manufacturer)
		case internal.FieldHazardStatements:
			absent = rec.HazardStatements.Len() == 0
		case internal.FieldUNNumber:
			absent = util.IsBlank(rec.UNNumber)
		case internal.FieldPictograms:
			absent = rec.Pictograms.Len() == 0
		case internal.FieldRevisionDate:
			absent = util.IsBlank(rec.RevisionDate)
		}
		if absent {
			out = append(out, field)
		}
	}
	return out
}

// Eligible reports whether a record with these missing fields is written.
func Eligible(missing []string) bool {
	for _, field := range missing {
		if !allowedMissing[field] {
			return false
		}
	}
	return true
}
