// Package textsource renders documents into page-ordered raw text.
package textsource

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var ErrUnsupported = errors.New("unsupported document type")

// Source is the text-extraction capability. Empty page text is valid output.
type Source interface {
	Name() string
	Pages(path string) ([]string, error)
}

// Router picks a source by file extension.
type Router struct {
	PDF  Source
	HTML Source
}

func (r Router) Name() string {
	return "router(" + r.PDF.Name() + ")"
}

func (r Router) Pages(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return r.PDF.Pages(path)
	case ".html", ".htm":
		if r.HTML == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
		return r.HTML.Pages(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// Chain tries each source in order and returns the first that succeeds.
type Chain []Source

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name())
	}
	return strings.Join(names, ">")
}

func (c Chain) Pages(path string) ([]string, error) {
	var errs []error
	for _, s := range c {
		pages, err := s.Pages(path)
		if err == nil {
			return pages, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	if len(errs) == 0 {
		return nil, errors.New("no text source configured")
	}
	return nil, errors.Join(errs...)
}

// New returns the router for a configured PDF backend: rows, plain or pdfcpu.
func New(backend string) (Source, error) {
	var pdfSource Source
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "rows":
		pdfSource = PDFRows{}
	case "plain":
		pdfSource = PDFPlain{}
	case "pdfcpu":
		pdfSource = PDFContent{}
	default:
		return nil, fmt.Errorf("unsupported text backend: %s", backend)
	}
	return Router{PDF: pdfSource, HTML: HTML{}}, nil
}

// Simple is the plain whole-document extraction used as the last resort.
func Simple() Source {
	return Router{PDF: PDFPlain{}, HTML: HTML{}}
}
