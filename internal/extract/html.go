package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const htmlBlocks = "p, div, li, tr, pre, blockquote, section, article, header, footer, h1, h2, h3, h4, h5, h6"

// extractHTML returns the visible text of an HTML page, one line per block element,
// preceded by the page title.
func extractHTML(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td, th").AppendHtml(" ")
	doc.Find(htmlBlocks).AppendHtml("\n")

	var lines []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		lines = append(lines, title)
	}
	body := doc.Find("body")
	for _, line := range strings.Split(body.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
