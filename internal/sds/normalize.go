// Package sds turns the text of safety data sheets into hazard records.
package sds

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reNewlineRun = regexp.MustCompile(`\n+`)
	reBlankRun   = regexp.MustCompile(`[ \t]+`)
)

// JoinPages concatenates page texts in order. Empty pages stay empty.
func JoinPages(pages []string) string {
	return strings.Join(pages, "\n")
}

// Normalize rejoins words hyphenated across a line wrap, collapses newline
// runs and space/tab runs and trims the result. Normalize is idempotent.
func Normalize(raw string) string {
	text := norm.NFC.String(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	// "a--\n" becomes "a-\n" after one pass.
	for strings.Contains(text, "-\n") {
		text = strings.ReplaceAll(text, "-\n", "")
	}
	text = reNewlineRun.ReplaceAllString(text, "\n")
	text = reBlankRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
