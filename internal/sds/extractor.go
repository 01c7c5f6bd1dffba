package sds

import (
	"fmt"
	"strings"

	"sdskataster/internal"
	"sdskataster/internal/textsource"
)

// Format selects the extraction dialect.
type Format string

const (
	FormatDefault  Format = "default"
	FormatFallback Format = "fallback"
	Format3M       Format = "3m"
	FormatBASF     Format = "basf"
	FormatLechler  Format = "lechler"
)

// Parser turns normalized text into a record.
type Parser func(text string, table *PictogramTable) internal.Record

var parsers = map[Format]Parser{
	FormatDefault:  ParseDefault,
	FormatFallback: ParseFallback,
	Format3M:       Parse3M,
	FormatBASF:     ParseBASF,
	FormatLechler:  ParseLechler,
}

// Formats lists the supported format tags.
func Formats() []Format {
	return []Format{FormatDefault, FormatFallback, Format3M, FormatBASF, FormatLechler}
}

func ParseFormat(v string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(v)))
	if f == "" {
		return FormatDefault, nil
	}
	if _, ok := parsers[f]; !ok {
		return "", fmt.Errorf("unknown extract format: %s", v)
	}
	return f, nil
}

// Extractor reads one document into a record. On error the record has every
// field absent and is still safe to group.
type Extractor interface {
	Format() Format
	Extract(path string) (internal.Record, error)
}

type textExtractor struct {
	format Format
	source textsource.Source
	parse  Parser
	table  *PictogramTable
}

// NewExtractor wires a text source and a pictogram table to the parser of
// the given format. The Lechler dialect retries unreadable files with the
// plain whole-document extraction.
func NewExtractor(format Format, src textsource.Source, table *PictogramTable) (Extractor, error) {
	parse, ok := parsers[format]
	if !ok {
		return nil, fmt.Errorf("unknown extract format: %s", format)
	}
	if src == nil {
		return nil, fmt.Errorf("extractor %s: no text source", format)
	}
	if table == nil {
		table = DefaultTable
	}
	if format == FormatLechler {
		src = textsource.Chain{src, textsource.Simple()}
	}
	return &textExtractor{format: format, source: src, parse: parse, table: table}, nil
}

func (e *textExtractor) Format() Format { return e.format }

func (e *textExtractor) Extract(path string) (internal.Record, error) {
	text, err := ReadText(e.source, path)
	if err != nil {
		return internal.NewRecord(), err
	}
	return e.parse(text, e.table), nil
}

// ReadText renders a document and normalizes it.
func ReadText(src textsource.Source, path string) (string, error) {
	pages, err := src.Pages(path)
	if err != nil {
		return "", fmt.Errorf("read text %s: %w", path, err)
	}
	return Normalize(JoinPages(pages)), nil
}
