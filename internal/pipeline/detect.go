package pipeline

import "strings"

type DetectResult struct {
	IsSDS  bool
	Score  float64
	Reason string
}

var detectKeywords = []string{"sicherheitsdatenblatt", "sicherheitsdatenblätter", "sdb", "sds", "msds", "safety data sheet", "datenblatt", "gefahrstoff", "reach", "clp"}

var attachmentKeywords = []string{"sdb", "sds", "msds", "sicherheitsdatenblatt", "safety"}

// DetectSDSMail scores a supplier mail: keywords in subject and body plus
// PDF attachments, with a bonus when an attachment name itself looks like a
// data sheet.
func DetectSDSMail(subject, text, htmlText string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	body := strings.ToLower(text + "\n" + htmlText)

	score := 0.0
	for _, kw := range detectKeywords {
		if containsWord(subject, kw) {
			score += 0.3
		}
		if containsWord(body, kw) {
			score += 0.1
		}
	}

	hasPDF := false
	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if !strings.HasSuffix(ln, ".pdf") {
			continue
		}
		if !hasPDF {
			score += 0.25
			hasPDF = true
		}
		for _, kw := range attachmentKeywords {
			if strings.Contains(ln, kw) {
				score += 0.3
				break
			}
		}
	}
	if score > 1 {
		score = 1
	}

	isSDS := hasPDF && score >= 0.5
	reason := "rules_negative"
	switch {
	case isSDS:
		reason = "rules_positive"
	case !hasPDF:
		reason = "no_pdf_attachment"
	}
	return DetectResult{IsSDS: isSDS, Score: score, Reason: reason}
}

// containsWord matches short keywords only as whole words so "sds" does not
// hit inside unrelated tokens.
func containsWord(text, kw string) bool {
	if len(kw) > 4 {
		return strings.Contains(text, kw)
	}
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		if f == kw {
			return true
		}
	}
	return false
}
