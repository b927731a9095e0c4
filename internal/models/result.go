package models

// SearchResult is a single similarity hit. Distance is nil when the index cannot report one;
// lower is more similar.
type SearchResult struct {
	ID       string   `json:"id"`
	Text     string   `json:"document"`
	Metadata Metadata `json:"metadata"`
	Distance *float64 `json:"distance"`
	Rank     int      `json:"rank"`
}

// Record is the result of a point lookup: a whole document, a chunk, or a chunked
// parent (empty Text, Metadata.ChunkIDs set).
type Record struct {
	ID       string   `json:"id"`
	Text     string   `json:"document"`
	Metadata Metadata `json:"metadata"`
}

// RecordFromEntry converts an index entry into a lookup record.
func RecordFromEntry(e *IndexEntry) *Record {
	return &Record{ID: e.ID, Text: e.Text, Metadata: e.Metadata.Clone()}
}
