package indexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func base(id string) models.Metadata {
	return models.Metadata{ID: id, Filename: id + ".txt"}
}

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ChunkerOption
		wantErr bool
	}{
		{"defaults", nil, false},
		{"zero overlap", []ChunkerOption{WithChunkSize(10), WithOverlap(0)}, false},
		{"overlap equals size", []ChunkerOption{WithChunkSize(10), WithOverlap(10)}, true},
		{"overlap above size", []ChunkerOption{WithChunkSize(10), WithOverlap(11)}, true},
		{"negative overlap", []ChunkerOption{WithOverlap(-1)}, true},
		{"zero size", []ChunkerOption{WithChunkSize(0), WithOverlap(0)}, true},
		{"negative min length", []ChunkerOption{WithMinChunkLength(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.opts...)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidArgument) {
					t.Errorf("want ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestChunker_Chunk2500(t *testing.T) {
	c, err := NewChunker()
	if err != nil {
		t.Fatal(err)
	}
	content := strings.Repeat("abcdefghij", 250)
	chunks, err := c.Chunk(content, base("doc"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	wantRanges := [][2]int{{0, 1000}, {800, 1800}, {1600, 2500}}
	for i, ch := range chunks {
		if ch.ID != ChunkID("doc", i) {
			t.Errorf("chunk %d id=%s", i, ch.ID)
		}
		if ch.Index != i || ch.DocumentID != "doc" {
			t.Errorf("chunk %d index=%d doc=%s", i, ch.Index, ch.DocumentID)
		}
		r := wantRanges[i]
		if ch.Content != content[r[0]:r[1]] {
			t.Errorf("chunk %d content does not match offsets %v", i, r)
		}
		if ch.Metadata.ChunkID != ch.ID || ch.Metadata.ChunkIndex == nil || *ch.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d metadata not set: %+v", i, ch.Metadata)
		}
		if ch.Metadata.ID != "doc" || ch.Metadata.Filename != "doc.txt" {
			t.Errorf("chunk %d did not inherit parent metadata", i)
		}
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c, _ := NewChunker(WithChunkSize(300), WithOverlap(50), WithMinChunkLength(10))
	content := strings.Repeat("the quick brown fox ", 120)
	a, _ := c.Chunk(content, base("d"))
	b, _ := c.Chunk(content, base("d"))
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Index != b[i].Index || a[i].Content != b[i].Content {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunker_ContiguousWhenShortWindowsDropped(t *testing.T) {
	c, err := NewChunker(WithChunkSize(4), WithOverlap(0), WithMinChunkLength(4))
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := c.Chunk("aaaabbbbcc", base("x"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
	}
	if chunks[1].Content != "bbbb" {
		t.Errorf("second chunk = %q", chunks[1].Content)
	}
}

func TestChunker_ShortAndEmpty(t *testing.T) {
	c, _ := NewChunker()
	chunks, err := c.Chunk("", base("e"))
	if err != nil || chunks != nil {
		t.Errorf("empty content: chunks=%v err=%v", chunks, err)
	}
	chunks, _ = c.Chunk(strings.Repeat("z", 500), base("s"))
	if len(chunks) != 1 || chunks[0].ID != "s_chunk_0" {
		t.Errorf("short content should give one chunk, got %d", len(chunks))
	}
	chunks, _ = c.Chunk(strings.Repeat("z", 99), base("t"))
	if len(chunks) != 0 {
		t.Errorf("content below minimum should give no chunks, got %d", len(chunks))
	}
}

func TestChunker_Runes(t *testing.T) {
	c, _ := NewChunker(WithChunkSize(4), WithOverlap(1), WithMinChunkLength(1))
	chunks, err := c.Chunk("日本語のテキスト", base("r"))
	if err != nil {
		t.Fatal(err)
	}
	if chunks[0].Content != "日本語の" {
		t.Errorf("first chunk = %q", chunks[0].Content)
	}
	if chunks[1].Content != "のテキス" {
		t.Errorf("second chunk = %q", chunks[1].Content)
	}
}

func TestChunker_MissingID(t *testing.T) {
	c, _ := NewChunker()
	if _, err := c.Chunk("content", models.Metadata{}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("want ErrInvalidArgument, got %v", err)
	}
}
