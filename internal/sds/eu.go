package sds

import (
	"regexp"

	"sdskataster/internal"
)

var euDateRules = dateRules(dateToken,
	"Überarbeitet am",
	"Druckdatum",
	"Bearbeitungsdatum",
	"Erstelldatum",
	"Stand",
	"Revisionsdatum",
)

var (
	reEUTradeName    = regexp.MustCompile(`(?i)(?:Handelsname|Artikelname):\s*(.*)`)
	reEUManufacturer = regexp.MustCompile(`(?i)Hersteller/Lieferant:\s*([^\n]+)`)

	fallbackManufacturer = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Lieferant:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Hersteller:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Firma:\s*([^\n]+)`),
	}
)

// ParseDefault reads data sheets laid out after the EU norm headings.
func ParseDefault(text string, table *PictogramTable) internal.Record {
	rec := internal.NewRecord()
	rec.RevisionDate = findDate(text, euDateRules)

	sections := SplitSections(text)
	if s1, ok := sections.Get("1"); ok {
		rec.TradeName = labelValue(s1, reEUTradeName)
		rec.Manufacturer = labelValue(s1, reEUManufacturer)
	}

	explicit := internal.CodeSet{}
	if s2, ok := sections.Get("2"); ok {
		collectCodes(rec.HazardStatements, reHazardOpen, s2)
		collectCodes(explicit, rePictogram, s2)
	}
	rec.Pictograms = pictogramsOrDerived(explicit, rec.HazardStatements, table)

	if s14, ok := sections.Get("14"); ok {
		rec.UNNumber = findUN(s14)
	}
	return rec
}

// ParseFallback is the permissive reading: more manufacturer labels and the
// loose hazard shapes on top of the plain codes.
func ParseFallback(text string, table *PictogramTable) internal.Record {
	rec := internal.NewRecord()
	rec.RevisionDate = findDate(text, euDateRules)

	sections := SplitSections(text)
	if s1, ok := sections.Get("1"); ok {
		rec.TradeName = labelValue(s1, reEUTradeName)
		rec.Manufacturer = labelValue(s1, fallbackManufacturer...)
	}

	explicit := internal.CodeSet{}
	if s2, ok := sections.Get("2"); ok {
		collectCodes(rec.HazardStatements, reHazardStrict, s2)
		collectLooseHazards(rec.HazardStatements, s2)
		collectCodes(explicit, rePictogram, s2)
	}
	rec.Pictograms = pictogramsOrDerived(explicit, rec.HazardStatements, table)

	if s14, ok := sections.Get("14"); ok {
		rec.UNNumber = findUN(s14)
	}
	return rec
}
