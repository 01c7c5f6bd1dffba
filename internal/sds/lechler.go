package sds

import (
	"regexp"
	"strings"
	"unicode"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

// LechlerManufacturer replaces whatever the sheet says; the Lechler family
// does not print the company reliably.
const LechlerManufacturer = "Lechler Coatings GmbH"

var lechlerDateRules = dateRules(isoDateToken,
	"Überarbeitet am",
	"Überarbeitungsdatum",
	"Revisionsdatum",
	"Bearbeitungsdatum",
	"Druckdatum",
	"Erstelldatum",
	"Ausgabedatum",
	"Revision date",
	"Date of issue",
	"Print date",
	"Datum",
	"Stand",
)

var (
	lechlerTradeName = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Handelsname\s*:?[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)Produktname\s*:?[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)Artikelname\s*:?[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)Produktbezeichnung\s*:?[ \t]*([^\n]+)`),
	}
	reUpperLine = regexp.MustCompile(`(?m)^([A-ZÄÖÜ0-9][A-ZÄÖÜ0-9 .,/&+\-]{2,59})$`)
	reCodeLine  = regexp.MustCompile(`^(?:(?:EUH|GHS|UN|H)\s?\d+[ ,;/]*)+$`)
	reSignal    = regexp.MustCompile(`^(?:GEFAHR|ACHTUNG|DANGER|WARNING)$`)
)

// ParseLechler reads Lechler sheets with several fallbacks per field.
func ParseLechler(text string, table *PictogramTable) internal.Record {
	rec := internal.NewRecord()
	rec.RevisionDate = findDate(text, lechlerDateRules)
	m := LechlerManufacturer
	rec.Manufacturer = &m

	sections := SplitSections(text)
	s1 := sections.Or("1", text)
	rec.TradeName = lechlerTradeNameOf(s1)
	if rec.TradeName == nil {
		rec.TradeName = upperCaseName(text)
	}

	hazardText := sections.Or("2", text)
	collectCodes(rec.HazardStatements, reHazardOpen, hazardText)
	collectLooseHazards(rec.HazardStatements, hazardText)

	explicit := internal.CodeSet{}
	collectCodes(explicit, rePictogram, text)
	rec.Pictograms = pictogramsOrDerived(explicit, rec.HazardStatements, table)

	s14, ok := sections.Get("14")
	if ok {
		rec.UNNumber = findUN(s14)
	}
	if rec.UNNumber == nil {
		rec.UNNumber = findUNNearSubsection(sections.Or("14", text))
	}
	return rec
}

func lechlerTradeNameOf(text string) *string {
	for _, re := range lechlerTradeName {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v := strings.TrimLeft(strings.TrimSpace(m[1]), ":/ ")
			if v == "" || looksLikeHeader(v) {
				continue
			}
			return util.NonBlank(v)
		}
	}
	return nil
}

// upperCaseName picks the first short line written in capitals.
func upperCaseName(text string) *string {
	for _, m := range reUpperLine.FindAllStringSubmatch(text, -1) {
		line := strings.TrimSpace(m[1])
		if looksLikeHeader(line) || reCodeLine.MatchString(line) || reSignal.MatchString(line) || letterCount(line) < 3 {
			continue
		}
		return util.NonBlank(line)
	}
	return nil
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
