package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	dec := json.NewDecoder(buf)
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if dec.More() {
		t.Fatal("output has more than one JSON object")
	}
	return out
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"json", "text"} {
		if _, err := ParseOutputFormat(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("yaml: %v", err)
	}
}

func TestWriter_JSONShapes(t *testing.T) {
	d := 0.25
	idx := 1
	tests := []struct {
		name  string
		write func(*Writer) error
		check func(*testing.T, map[string]any)
	}{
		{
			name:  "added",
			write: func(w *Writer) error { return w.Added("doc-1", "") },
			check: func(t *testing.T, m map[string]any) {
				if m["success"] != true || m["doc_id"] != "doc-1" {
					t.Errorf("got %v", m)
				}
				if _, ok := m["file_type"]; ok {
					t.Error("file_type should be omitted for text documents")
				}
			},
		},
		{
			name:  "added file",
			write: func(w *Writer) error { return w.Added("file_abc", "PDF") },
			check: func(t *testing.T, m map[string]any) {
				if m["file_type"] != "PDF" {
					t.Errorf("got %v", m)
				}
			},
		},
		{
			name: "results",
			write: func(w *Writer) error {
				return w.Results([]*models.SearchResult{{
					ID:       "doc_chunk_1",
					Text:     "chunk text",
					Metadata: models.Metadata{ID: "doc", Filename: "doc.txt", Length: 2500, ChunkID: "doc_chunk_1", ChunkIndex: &idx},
					Distance: &d,
					Rank:     1,
				}})
			},
			check: func(t *testing.T, m map[string]any) {
				results := m["results"].([]any)
				r := results[0].(map[string]any)
				if r["id"] != "doc_chunk_1" || r["document"] != "chunk text" || r["distance"] != 0.25 || r["rank"] != float64(1) {
					t.Errorf("result = %v", r)
				}
				meta := r["metadata"].(map[string]any)
				if meta["chunk_index"] != float64(1) || meta["filename"] != "doc.txt" {
					t.Errorf("metadata = %v", meta)
				}
			},
		},
		{
			name:  "no results",
			write: func(w *Writer) error { return w.Results(nil) },
			check: func(t *testing.T, m map[string]any) {
				results, ok := m["results"].([]any)
				if !ok || len(results) != 0 {
					t.Errorf("results should be an empty list, got %v", m["results"])
				}
			},
		},
		{
			name:  "document not found",
			write: func(w *Writer) error { return w.Document(nil) },
			check: func(t *testing.T, m map[string]any) {
				v, ok := m["document"]
				if !ok || v != nil || m["success"] != true {
					t.Errorf("want document null, got %v", m)
				}
			},
		},
		{
			name: "document",
			write: func(w *Writer) error {
				return w.Document(&models.Record{ID: "a", Text: "hello", Metadata: models.Metadata{ID: "a", Filename: "a.txt", Length: 5}})
			},
			check: func(t *testing.T, m map[string]any) {
				doc := m["document"].(map[string]any)
				if doc["id"] != "a" || doc["document"] != "hello" {
					t.Errorf("document = %v", doc)
				}
			},
		},
		{
			name:  "failure",
			write: func(w *Writer) error { return w.Failure(InvalidCommand) },
			check: func(t *testing.T, m map[string]any) {
				if m["success"] != false || m["error"] != "Invalid command" {
					t.Errorf("got %v", m)
				}
			},
		},
		{
			name:  "watched",
			write: func(w *Writer) error { return w.Watched([]string{"/docs"}, 3, 2, 1) },
			check: func(t *testing.T, m map[string]any) {
				if m["ingested"] != float64(3) || m["skipped"] != float64(2) || m["failed"] != float64(1) || len(m["watched"].([]any)) != 1 {
					t.Errorf("got %v", m)
				}
			},
		},
		{
			name:  "status",
			write: func(w *Writer) error { return w.Status(&Status{Documents: 2, Entries: 4, IndexType: "sqlite"}) },
			check: func(t *testing.T, m map[string]any) {
				st := m["status"].(map[string]any)
				if st["documents"] != float64(2) || st["entries"] != float64(4) || st["index_type"] != "sqlite" {
					t.Errorf("status = %v", st)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.write(NewWriter(&buf, OutputJSON)); err != nil {
				t.Fatal(err)
			}
			tt.check(t, decode(t, &buf))
		})
	}
}

func TestWriter_Text(t *testing.T) {
	d := 0.1234
	var buf bytes.Buffer
	w := NewWriter(&buf, OutputText)
	err := w.Results([]*models.SearchResult{{
		ID:       "id1",
		Text:     strings.Repeat("long ", 100),
		Metadata: models.Metadata{ID: "id1", Filename: "notes.md"},
		Distance: &d,
		Rank:     1,
	}})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 1 results", "Rank: 1", "Distance: 0.1234", "ID: id1", "File: notes.md", "..."} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	_ = w.Document(nil)
	if !strings.Contains(buf.String(), "not found") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	_ = w.Failure("boom")
	if buf.String() != "Error: boom\n" {
		t.Errorf("got %q", buf.String())
	}
}
