package sds

import (
	"regexp"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

var revisedOnRules = dateRules(dateToken, "Überarbeitet am")

var (
	// 3M sheets carry no trade name label; the product is the title line
	// ending in one of the product categories.
	re3MTitle        = regexp.MustCompile(`(?m)^([^\n_]*(?:Heavy Duty Cleaner|Remover|Cleaner|Polish|Compound|Wax)[^\n_]*)`)
	re3MManufacturer = regexp.MustCompile(`(?i)Anschrift:\s*([^,\n]+)`)

	reBASFTradeName    = regexp.MustCompile(`(?i)Handelsname\s*:?\s*(.+)`)
	reBASFManufacturer = regexp.MustCompile(`(?i)Firma:\s*([^\n]+)`)
)

// Parse3M reads 3M and Meguiar's sheets.
func Parse3M(text string, table *PictogramTable) internal.Record {
	rec := internal.NewRecord()
	rec.RevisionDate = findDate(text, revisedOnRules)

	for _, m := range re3MTitle.FindAllStringSubmatch(text, -1) {
		if looksLikeHeader(m[1]) {
			continue
		}
		if v := util.NonBlank(util.CollapseSpaces(m[1])); v != nil {
			rec.TradeName = v
			break
		}
	}

	sections := SplitSections(text)
	if s1, ok := sections.Get("1"); ok {
		rec.Manufacturer = labelValue(s1, re3MManufacturer)
	}

	explicit := internal.CodeSet{}
	if s2, ok := sections.Get("2"); ok {
		collectCodes(rec.HazardStatements, reHazardStrict, s2)
		collectCodes(explicit, rePictogram, s2)
	}
	rec.Pictograms = pictogramsOrDerived(explicit, rec.HazardStatements, table)

	if s14, ok := sections.Get("14"); ok {
		rec.UNNumber = findUN(s14)
	}
	return rec
}

// ParseBASF reads BASF sheets in the EU 2020/878 layout. Pictograms are
// rarely printed as codes there, so derivation is the common path.
func ParseBASF(text string, table *PictogramTable) internal.Record {
	rec := internal.NewRecord()
	rec.RevisionDate = findDate(text, revisedOnRules)

	sections := SplitSections(text)
	if s1, ok := sections.Get("1"); ok {
		if m := reBASFTradeName.FindStringSubmatch(s1); m != nil {
			rec.TradeName = util.NonBlank(util.CollapseSpaces(m[1]))
		}
		rec.Manufacturer = labelValue(s1, reBASFManufacturer)
	}

	explicit := internal.CodeSet{}
	if s2, ok := sections.Get("2"); ok {
		collectCodes(rec.HazardStatements, reHazardStrict, s2)
		collectCodes(explicit, rePictogram, s2)
	}
	rec.Pictograms = pictogramsOrDerived(explicit, rec.HazardStatements, table)

	if s14, ok := sections.Get("14"); ok {
		rec.UNNumber = findUN(s14)
	}
	return rec
}
