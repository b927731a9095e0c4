package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kioku/internal/models"
)

func TestFileType(t *testing.T) {
	tests := map[string]string{
		"report.PDF":   FileTypePDF,
		"memo.docx":    FileTypeWord,
		"memo.doc":     FileTypeWord,
		"notes.odt":    FileTypeWord,
		"sheet.xlsx":   FileTypeSpreadsheet,
		"scan.jpeg":    FileTypeImage,
		"readme.md":    FileTypeText,
		"page.html":    FileTypeText,
		"data.json":    FileTypeUnknown,
		"no_extension": FileTypeUnknown,
	}
	for path, want := range tests {
		if got := FileType(path); got != want {
			t.Errorf("FileType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestExtractBytes_plain(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"text", []byte("Hello world\nLine 2"), ".txt", "Hello world\nLine 2"},
		{"utf8", []byte("caf\xc3\xa9"), ".txt", "café"},
		{"invalid utf8", []byte("hello\x80world"), ".rst", "hello�world"},
		{"unknown extension", []byte("{\"a\":1}"), ".json", "{\"a\":1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_image(t *testing.T) {
	_, err := NewExtractor().ExtractBytes([]byte{0x89, 'P', 'N', 'G'}, ".png")
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("want ErrInvalidArgument, got %v", err)
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func buildDOCX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	body := `<w:document><w:body>` +
		`<w:p w:rsidR="00A1"><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:tab/><w:t>Fish &amp; chips</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	content := buildDOCX(t, map[string]string{"word/document.xml": body})

	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nFish & chips" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxCustomMainPart(t *testing.T) {
	types := `<Types><Override ContentType="` + docxMainContentType + `" PartName="/word/main.xml"/></Types>`
	content := buildDOCX(t, map[string]string{
		contentTypesPath: types,
		"word/main.xml":  `<w:p><w:r><w:t>Main part</w:t></w:r></w:p>`,
	})
	got, err := NewExtractor().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Main part" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("plain"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestExtract_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}

	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != "File content" || got.FileType != FileTypeText || got.Size != 12 {
		t.Errorf("got %+v", got)
	}

	if _, err := NewExtractor().Extract(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractBytes_markdown(t *testing.T) {
	src := "# Title\n\nSome *emphasis* and a [link](http://x.test).\nSecond line.\n\n- one\n- two\n\n```go\nfmt.Println(1)\n```\n"
	got, err := NewExtractor().ExtractBytes([]byte(src), ".md")
	if err != nil {
		t.Fatal(err)
	}
	want := "Title\nSome emphasis and a link.\nSecond line.\none\ntwo\nfmt.Println(1)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_html(t *testing.T) {
	src := `<html><head><title>Page</title><style>p{}</style></head>
<body><h1>Heading</h1><p>First   paragraph<br>continued</p><script>var x;</script>
<table><tr><td>a</td><td>b</td></tr></table></body></html>`
	got, err := NewExtractor().ExtractBytes([]byte(src), ".html")
	if err != nil {
		t.Fatal(err)
	}
	want := "Page\nHeading\nFirst paragraph\ncontinued\na b"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
