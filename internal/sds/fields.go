package sds

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sdskataster/internal"
	"sdskataster/internal/util"
)

// Code patterns. The default dialect accepts suffixed codes such as H360FD
// through the open-ended form.
var (
	reHazardOpen   = regexp.MustCompile(`\bH\d{3}`)
	reHazardStrict = regexp.MustCompile(`\bH\d{3}\b`)
	rePictogram    = regexp.MustCompile(`\bGHS\d{2}\b`)
)

// Looser hazard shapes: a classification abbreviation with its category
// followed by the code, codes printed with a space, and codes carrying
// reproductive-toxicity suffixes.
var looseHazardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:Acute Tox|Skin Irrit|Skin Corr|Skin Sens|Eye Irrit|Eye Dam|Resp\. Sens|STOT SE|STOT RE|Flam\. Liq|Flam\. Sol|Flam\. Gas|Aerosol|Asp\. Tox|Carc|Muta|Repr|Lact|Aquatic Acute|Aquatic Chronic)\.?\s*\d?[A-C]?\s*[,;:]?\s*\(?\s*(H)\s?(\d{3})`),
	regexp.MustCompile(`\b(H)\s(\d{3})\b`),
	regexp.MustCompile(`\b(H)(\d{3})[A-Za-z]{1,2}\b`),
}

func collectCodes(set internal.CodeSet, re *regexp.Regexp, text string) {
	for _, m := range re.FindAllString(text, -1) {
		set.Add(m)
	}
}

func collectLooseHazards(set internal.CodeSet, text string) {
	for _, re := range looseHazardPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			set.Add(m[1] + m[2])
		}
	}
}

// pictogramsOrDerived keeps explicit codes when there are any, otherwise
// derives them from the hazard statements.
func pictogramsOrDerived(explicit, hazards internal.CodeSet, table *PictogramTable) internal.CodeSet {
	if explicit.Len() > 0 {
		return explicit
	}
	return table.Derive(hazards)
}

// labelValue tries each pattern in order and returns the first non-blank
// capture.
func labelValue(text string, patterns ...*regexp.Regexp) *string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := util.NonBlank(m[1]); v != nil {
			return v
		}
	}
	return nil
}

const (
	dateToken    = `(\d{1,2}[.\-/]\d{1,2}[.\-/]\d{4})`
	isoDateToken = `(\d{1,2}[.\-/]\d{1,2}[.\-/]\d{4}|\d{4}-\d{2}-\d{2})`
)

// dateRules builds one pattern per label, in priority order. Labels must not
// start in the middle of a word ("Stand" inside "Zustand").
func dateRules(token string, labels ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		out = append(out, regexp.MustCompile(`(?i)(?:^|[^\p{L}])`+label+`\s*:?\s*`+token))
	}
	return out
}

func findDate(text string, rules []*regexp.Regexp) *string {
	for _, re := range rules {
		if m := re.FindStringSubmatch(text); m != nil {
			d := NormalizeDate(m[1])
			return &d
		}
	}
	return nil
}

var (
	reDayFirst = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{4})$`)
	reISODate  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// NormalizeDate rewrites an unambiguous date as DD.MM.YYYY. Slash dates are
// read day first unless only the month-first reading is a valid date.
// Anything else is returned trimmed and unchanged.
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := reISODate.FindStringSubmatch(raw); m != nil {
		if d, ok := civilDate(m[3], m[2], m[1]); ok {
			return d
		}
		return raw
	}
	m := reDayFirst.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	if d, ok := civilDate(m[1], m[2], m[3]); ok {
		return d
	}
	if strings.Contains(raw, "/") {
		if d, ok := civilDate(m[2], m[1], m[3]); ok {
			return d
		}
	}
	return raw
}

func civilDate(day, month, year string) (string, bool) {
	d, _ := strconv.Atoi(day)
	mo, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != mo || t.Year() != y {
		return "", false
	}
	return fmt.Sprintf("%02d.%02d.%04d", d, mo, y), true
}

var (
	reNotDangerousGoods = regexp.MustCompile(`(?i)kein(?:e|en)?\s+Gefahrgut|nicht\s+als\s+Gefahrgut|not\s+dangerous\s+(?:goods\s+)?for\s+transport|not\s+regulated`)
	reUNToken           = regexp.MustCompile(`(?i)\bUN\s*(\d{1,4})\b`)
	reSubsection141     = regexp.MustCompile(`14\.1\b`)
	reWindowNumber      = regexp.MustCompile(`\b(\d{3,4})\b`)
)

// findUN reads the transport section. The "no dangerous goods" phrase wins
// over any UN token.
func findUN(section14 string) *string {
	if reNotDangerousGoods.MatchString(section14) {
		v := internal.UNNotClassified
		return &v
	}
	if m := reUNToken.FindStringSubmatch(section14); m != nil {
		v := "UN" + m[1]
		return &v
	}
	return nil
}

const unWindowSize = 200

// Section numbers and regulation references that show up right after 14.1.
var unFalsePositives = map[string]bool{
	"141": true, "142": true, "143": true, "144": true, "145": true, "146": true, "147": true,
	"1272": true, "1907": true, "2006": true, "2008": true, "2020": true, "878": true,
}

// findUNNearSubsection takes the first plausible number in a fixed window
// after the "14.1" marker.
func findUNNearSubsection(text string) *string {
	loc := reSubsection141.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	window := []rune(text[loc[1]:])
	if len(window) > unWindowSize {
		window = window[:unWindowSize]
	}
	for _, m := range reWindowNumber.FindAllStringSubmatch(string(window), -1) {
		if unFalsePositives[m[1]] {
			continue
		}
		v := "UN" + m[1]
		return &v
	}
	return nil
}

// Lines that are page furniture, never product names.
var reHeaderLine = regexp.MustCompile(`(?i)ABSCHNITT|SICHERHEITSDATENBLATT|SAFETY DATA SHEET|gemäß|Verordnung|REACH|Seite\s*\d|Page\s*\d|^\s*\d+\s*(?:/|von|of)\s*\d+\s*$|Version|Druckdatum|Überarbeitet`)

func looksLikeHeader(line string) bool {
	return reHeaderLine.MatchString(line)
}
