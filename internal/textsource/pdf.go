package textsource

import (
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// PDFRows rebuilds every page line by line from positioned text runs, which
// keeps the label/value layout of SDS forms intact.
type PDFRows struct{}

func (PDFRows) Name() string { return "pdf-rows" }

func (PDFRows) Pages(path string) (pages []string, err error) {
	defer recoverPDF(path, &err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			var b strings.Builder
			var prevEnd float64
			for j, t := range row.Content {
				if j > 0 && t.X-prevEnd > t.FontSize*0.2 {
					b.WriteByte(' ')
				}
				b.WriteString(t.S)
				prevEnd = t.X + t.W
			}
			lines = append(lines, b.String())
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}

// PDFPlain returns the plain text of the whole document as one page.
type PDFPlain struct{}

func (PDFPlain) Name() string { return "pdf-plain" }

func (PDFPlain) Pages(path string) (pages []string, err error) {
	defer recoverPDF(path, &err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("plain text: %w", err)
	}
	blob, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return []string{string(blob)}, nil
}

// The pdf reader panics on some malformed xref tables.
func recoverPDF(path string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("read pdf %s: %v", path, r)
	}
}
