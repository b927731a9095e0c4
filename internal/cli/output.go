// Package cli renders kioku command results as JSON or text.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputJSON prints exactly one JSON object per command (default).
	OutputJSON OutputFormat = "json"
	// OutputText is human-readable text.
	OutputText OutputFormat = "text"
)

// InvalidCommand is the error message for a missing or unknown command.
const InvalidCommand = "Invalid command"

// ParseOutputFormat validates an -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputJSON, OutputText:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q; use json or text", models.ErrInvalidArgument, s)
	}
}

// Status is the payload of the status command.
type Status struct {
	Documents         int64  `json:"documents"`
	Entries           int    `json:"entries"`
	IndexType         string `json:"index_type"`
	Dimensions        int    `json:"dimensions"`
	Metric            string `json:"metric"`
	EmbeddingProvider string `json:"embedding_provider"`
	ChunkSize         int    `json:"chunk_size"`
	ChunkOverlap      int    `json:"chunk_overlap"`
	ChunkThreshold    int    `json:"chunk_threshold"`
	ConfigPath        string `json:"config_path,omitempty"`
	DatabasePath      string `json:"database_path,omitempty"`
	DiskUsageBytes    *int64 `json:"disk_usage_bytes,omitempty"`
}

type addedResponse struct {
	Success  bool   `json:"success"`
	DocID    string `json:"doc_id"`
	FileType string `json:"file_type,omitempty"`
}

type resultsResponse struct {
	Success bool                    `json:"success"`
	Results []*models.SearchResult `json:"results"`
}

type documentResponse struct {
	Success  bool           `json:"success"`
	Document *models.Record `json:"document"`
}

type statusResponse struct {
	Success bool    `json:"success"`
	Status  *Status `json:"status"`
}

type watchResponse struct {
	Success  bool     `json:"success"`
	Watched  []string `json:"watched"`
	Ingested int64    `json:"ingested"`
	Skipped  int64    `json:"skipped"`
	Failed   int64    `json:"failed"`
}

type versionResponse struct {
	Success bool   `json:"success"`
	Version string `json:"version"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Writer prints command results to w in one format.
type Writer struct {
	w      io.Writer
	format OutputFormat
}

// NewWriter returns a Writer. An empty format means JSON.
func NewWriter(w io.Writer, format OutputFormat) *Writer {
	if format == "" {
		format = OutputJSON
	}
	return &Writer{w: w, format: format}
}

func (p *Writer) json(v any) error {
	return json.NewEncoder(p.w).Encode(v)
}

// Added reports an ingested document. fileType is set for files only.
func (p *Writer) Added(docID, fileType string) error {
	if p.format == OutputJSON {
		return p.json(addedResponse{Success: true, DocID: docID, FileType: fileType})
	}
	if fileType != "" {
		_, err := fmt.Fprintf(p.w, "Added %s document %s\n", fileType, docID)
		return err
	}
	_, err := fmt.Fprintf(p.w, "Added document %s\n", docID)
	return err
}

// Results reports search results, closest first.
func (p *Writer) Results(results []*models.SearchResult) error {
	if results == nil {
		results = []*models.SearchResult{}
	}
	if p.format == OutputJSON {
		return p.json(resultsResponse{Success: true, Results: results})
	}
	fmt.Fprintf(p.w, "\nFound %d results\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(p.w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(p.w, "Rank: %d | Distance: %s\n", r.Rank, formatDistance(r.Distance))
		fmt.Fprintf(p.w, "ID: %s\n", r.ID)
		if r.Metadata.Filename != "" {
			fmt.Fprintf(p.w, "File: %s\n", r.Metadata.Filename)
		}
		fmt.Fprintf(p.w, "\n%s\n\n", utils.Truncate(r.Text, 200))
	}
	return nil
}

// Document reports a point lookup. A nil record is printed as not found.
func (p *Writer) Document(rec *models.Record) error {
	if p.format == OutputJSON {
		return p.json(documentResponse{Success: true, Document: rec})
	}
	if rec == nil {
		_, err := fmt.Fprintln(p.w, "Document not found")
		return err
	}
	fmt.Fprintf(p.w, "ID: %s\n", rec.ID)
	m := rec.Metadata
	fmt.Fprintf(p.w, "filename: %s\n", m.Filename)
	fmt.Fprintf(p.w, "length:   %d\n", m.Length)
	if m.FileType != "" {
		fmt.Fprintf(p.w, "type:     %s\n", m.FileType)
	}
	if m.ChunkID != "" {
		fmt.Fprintf(p.w, "chunk:    %d of %s\n", *m.ChunkIndex, m.ID)
	}
	if len(m.ChunkIDs) > 0 {
		fmt.Fprintf(p.w, "chunks:   %s\n", strings.Join(m.ChunkIDs, ", "))
	}
	for _, k := range m.ExtraKeys() {
		fmt.Fprintf(p.w, "%s: %v\n", k, m.Extra[k])
	}
	if rec.Text != "" {
		fmt.Fprintf(p.w, "\n%s\n", rec.Text)
	}
	return nil
}

// Status reports store counts and the active configuration.
func (p *Writer) Status(st *Status) error {
	if p.format == OutputJSON {
		return p.json(statusResponse{Success: true, Status: st})
	}
	fmt.Fprintf(p.w, "documents:          %d   # count of ingested documents\n", st.Documents)
	fmt.Fprintf(p.w, "entries:            %d   # count of vectors in the index\n", st.Entries)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(p.w, "disk_usage_bytes:   %d\n", *st.DiskUsageBytes)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "# configuration")
	fmt.Fprintf(p.w, "index_type:         %s\n", st.IndexType)
	fmt.Fprintf(p.w, "metric:             %s\n", st.Metric)
	fmt.Fprintf(p.w, "embedding_provider: %s\n", st.EmbeddingProvider)
	fmt.Fprintf(p.w, "embedding_dims:     %d\n", st.Dimensions)
	fmt.Fprintf(p.w, "chunk_size:         %d\n", st.ChunkSize)
	fmt.Fprintf(p.w, "chunk_overlap:      %d\n", st.ChunkOverlap)
	fmt.Fprintf(p.w, "chunk_threshold:    %d\n", st.ChunkThreshold)
	if st.ConfigPath != "" {
		fmt.Fprintf(p.w, "config_path:        %s\n", st.ConfigPath)
	}
	if st.DatabasePath != "" {
		fmt.Fprintf(p.w, "database_path:      %s\n", st.DatabasePath)
	}
	return nil
}

// Watched reports the totals of a finished watch session. skipped counts files that
// were already up to date.
func (p *Writer) Watched(dirs []string, ingested, skipped, failed int64) error {
	if p.format == OutputJSON {
		return p.json(watchResponse{Success: true, Watched: dirs, Ingested: ingested, Skipped: skipped, Failed: failed})
	}
	_, err := fmt.Fprintf(p.w, "Watched %s: %d files ingested, %d unchanged, %d failed\n",
		strings.Join(dirs, ", "), ingested, skipped, failed)
	return err
}

// Version reports the build version.
func (p *Writer) Version(v string) error {
	if p.format == OutputJSON {
		return p.json(versionResponse{Success: true, Version: v})
	}
	_, err := fmt.Fprintf(p.w, "kioku version %s\n", v)
	return err
}

// Failure reports a failed command.
func (p *Writer) Failure(msg string) error {
	if p.format == OutputJSON {
		return p.json(errorResponse{Success: false, Error: msg})
	}
	_, err := fmt.Fprintf(p.w, "Error: %s\n", msg)
	return err
}

func formatDistance(d *float64) string {
	if d == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *d)
}
