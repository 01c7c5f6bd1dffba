package textsource

import (
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// HTML renders an HTML export of a data sheet as a single page.
type HTML struct{}

func (HTML) Name() string { return "html" }

func (HTML) Pages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	text, err := HTMLText(f)
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}

const blockSelector = "p,div,li,tr,table,h1,h2,h3,h4,h5,h6,section,article,pre,blockquote"

// HTMLText flattens markup to text with one line per block element and
// table cells separated by spaces.
func HTMLText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script,style,noscript,head").Remove()
	doc.Find("br").ReplaceWithNodes(textNode("\n"))
	doc.Find("td,th").AppendNodes(textNode(" "))
	doc.Find(blockSelector).AppendNodes(textNode("\n"))

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
