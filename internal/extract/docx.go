package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultDocument = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wtTag matches <w:t>text</w:t> with any attributes.
var wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)

var wpEnd = regexp.MustCompile(`</w:p>`)

// overrideTag and partNameAttr locate the main document part, attributes in either order.
var (
	overrideTag  = regexp.MustCompile(`<Override\s[^>]*>`)
	partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)
)

// readZipEntry returns the contents of the named entry, or nil if it does not exist.
func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

// docxMainDocument finds the main document part from [Content_Types].xml.
func docxMainDocument(zr *zip.Reader) string {
	types, err := readZipEntry(zr, contentTypesPath)
	if err != nil || types == nil {
		return docxDefaultDocument
	}
	for _, tag := range overrideTag.FindAllString(string(types), -1) {
		if !strings.Contains(tag, `ContentType="`+docxMainContentType+`"`) {
			continue
		}
		if m := partNameAttr.FindStringSubmatch(tag); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDefaultDocument
}

// extractDOCX collects the text runs of a .docx body, one line per paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docPath := docxMainDocument(zr)
	body, err := readZipEntry(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	var lines []string
	for _, para := range wpEnd.Split(string(body), -1) {
		var b strings.Builder
		for _, m := range wtTag.FindAllStringSubmatch(para, -1) {
			b.WriteString(html.UnescapeString(m[1]))
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
