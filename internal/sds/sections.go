package sds

import (
	"regexp"
	"strings"
)

var reSectionHeader = regexp.MustCompile(`(?i)\*?\s*ABSCHNITT\s+(\d+):`)

// Sections maps a section number as written ("1", "14") to its body.
// A missing key means the document did not expose that section.
type Sections map[string]string

// Get returns the body of section n and whether it exists.
func (s Sections) Get(n string) (string, bool) {
	body, ok := s[n]
	return body, ok
}

// Or returns the body of section n, or fallback when it is absent.
func (s Sections) Or(n, fallback string) string {
	if body, ok := s[n]; ok {
		return body
	}
	return fallback
}

// SplitSections cuts normalized text at every "ABSCHNITT n:" header. A body
// runs from the end of its header to the start of the next one. Repeated
// numbers keep the later body.
func SplitSections(text string) Sections {
	out := Sections{}
	matches := reSectionHeader.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		out[text[m[2]:m[3]]] = strings.TrimSpace(text[m[1]:end])
	}
	return out
}
