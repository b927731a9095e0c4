package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kioku/internal/models"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(16)
	a, _ := e.Embed(ctx, "hello world")
	b, _ := e.Embed(ctx, "hello world")
	c, _ := e.Embed(ctx, "something else")
	if len(a) != 16 {
		t.Fatalf("len=%d", len(a))
	}
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same text produced different vectors")
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different texts produced the same vector")
	}
	var norm float64
	for _, v := range a {
		norm += float64(v * v)
	}
	if math.Abs(norm-1) > 1e-4 {
		t.Errorf("vector not normalized: |v|^2=%v", norm)
	}
}

func TestMockEmbedder_DefaultDimensions(t *testing.T) {
	if NewMockEmbedder(0).Dimensions() != DefaultDimensions {
		t.Error("expected default dimensions")
	}
}

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != tokenCLS || ids[3] != tokenSEP {
		t.Errorf("expected [CLS] w w [SEP], got %v", ids[:4])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
	upper, _, _ := tok.Tokenize("HELLO", 4)
	lower, _, _ := tok.Tokenize("hello", 4)
	if upper[1] != lower[1] {
		t.Error("tokenizer should be case-insensitive")
	}
}

func TestSplitWords(t *testing.T) {
	if words := SplitWords("  a  b\tc\n"); len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	long := "a very long string that would overflow a naive signed hash many times over"
	if HashString(long) < 0 {
		t.Error("hash should be non-negative")
	}
}

// countingEmbedder counts calls and can be told to fail or return bad vectors.
type countingEmbedder struct {
	dims   int
	calls  int
	batch  int
	err    error
	output []float32
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.output != nil {
		return c.output, nil
	}
	v := make([]float32, c.dims)
	v[len(text)%c.dims] = 1
	return v, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batch++
	return embedEach(ctx, c, texts)
}

func (c *countingEmbedder) Dimensions() int { return c.dims }
func (c *countingEmbedder) Close() error    { return nil }

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{dims: 4}
	e := NewCachedEmbedder(inner, 8)

	if _, err := e.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}

	vecs, err := e.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 || vecs[1][2] != 1 {
		t.Errorf("batch result = %v", vecs)
	}
	if inner.calls != 3 {
		t.Errorf("only misses should reach the provider, calls=%d", inner.calls)
	}

	vecs[0][0] = 42
	again, _ := e.Embed(ctx, "a")
	if again[0] == 42 {
		t.Error("cached vector aliases returned slice")
	}
}

func TestCheckedEmbedder(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		inner *countingEmbedder
	}{
		{"provider error", &countingEmbedder{dims: 3, err: errors.New("connection refused")}},
		{"wrong length", &countingEmbedder{dims: 3, output: []float32{1, 0}}},
		{"nil vector", &countingEmbedder{dims: 3, output: []float32{}}},
		{"nan", &countingEmbedder{dims: 3, output: []float32{float32(math.NaN()), 0, 0}}},
		{"inf", &countingEmbedder{dims: 3, output: []float32{float32(math.Inf(1)), 0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Checked(tt.inner)
			if _, err := e.Embed(ctx, "x"); !errors.Is(err, models.ErrEmbeddingUnavailable) {
				t.Errorf("Embed: want ErrEmbeddingUnavailable, got %v", err)
			}
			if _, err := e.EmbedBatch(ctx, []string{"x", "y"}); !errors.Is(err, models.ErrEmbeddingUnavailable) {
				t.Errorf("EmbedBatch: want ErrEmbeddingUnavailable, got %v", err)
			}
		})
	}

	ok := Checked(&countingEmbedder{dims: 3})
	if _, err := ok.Embed(ctx, "fine"); err != nil {
		t.Errorf("well-formed output rejected: %v", err)
	}
	if Checked(ok) != ok {
		t.Error("Checked should not double wrap")
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, Options{Provider: "mock", Dimensions: 8, CacheSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions=%d", e.Dimensions())
	}
	if _, err := New(ctx, Options{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	t.Setenv("KIOKU_TEST_EMPTY_KEY", "")
	if _, err := New(ctx, Options{Provider: "gemini", APIKeyEnv: "KIOKU_TEST_EMPTY_KEY"}); err == nil {
		t.Error("expected error for missing gemini key")
	}
}
