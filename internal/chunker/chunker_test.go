package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/docq-go/internal/document"
	"github.com/54b3r/docq-go/internal/rag"
)

func testDoc(content string) document.Document {
	return document.Document{Path: "/docs/sample.txt", Content: content, Format: document.FormatPlain}
}

func TestSplit_InvalidParameters(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		windowSize int
		overlap    int
	}{
		{"zero window", 0, 0},
		{"negative window", -5, 0},
		{"overlap equals window", 10, 10},
		{"overlap exceeds window", 10, 15},
		{"negative overlap", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split(testDoc("some text"), tt.windowSize, tt.overlap)
			if !errors.Is(err, rag.ErrConfig) {
				t.Errorf("want ErrConfig, got %v", err)
			}
		})
	}
}

func TestSplit_SingleShortChunk(t *testing.T) {
	t.Parallel()
	content := "Machine learning is a subset of artificial intelligence."

	chunks, err := SplitAll(testDoc(content), 50, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	// 56 runes with a 50-rune window and stride 40: two windows.
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != content[:50] {
		t.Errorf("chunk 0 text: got %q", chunks[0].Text)
	}
	if chunks[1].Start != 40 || chunks[1].End != 56 {
		t.Errorf("chunk 1 span: got [%d,%d), want [40,56)", chunks[1].Start, chunks[1].End)
	}
}

func TestSplit_ContentShorterThanWindow(t *testing.T) {
	t.Parallel()
	content := "short"

	chunks, err := SplitAll(testDoc(content), 50, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("want exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != content {
		t.Errorf("text: got %q, want %q", chunks[0].Text, content)
	}
	if chunks[0].Index != 0 || chunks[0].Start != 0 || chunks[0].End != 5 {
		t.Errorf("chunk fields: %+v", chunks[0])
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	t.Parallel()
	chunks, err := SplitAll(testDoc(""), 50, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("want no chunks for empty content, got %d", len(chunks))
	}
}

func TestSplit_WindowNeverExceeded(t *testing.T) {
	t.Parallel()
	content := strings.Repeat("abcdefghij", 37) // 370 runes

	chunks, err := SplitAll(testDoc(content), 100, 20)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for _, c := range chunks {
		if n := len([]rune(c.Text)); n > 100 {
			t.Errorf("chunk %d has %d runes, window is 100", c.Index, n)
		}
	}
}

func TestSplit_ReconstructionExact(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		content    string
		windowSize int
		overlap    int
	}{
		{"no overlap", strings.Repeat("x", 95) + "tail", 10, 0},
		{"small overlap", "The quick brown fox jumps over the lazy dog, twice over.", 16, 4},
		{"large overlap", strings.Repeat("abcdef", 20), 10, 9},
		{"multibyte runes", strings.Repeat("héllo wörld ", 12), 7, 3},
		{"final chunk inside overlap", strings.Repeat("y", 10), 5, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks, err := SplitAll(testDoc(tt.content), tt.windowSize, tt.overlap)
			if err != nil {
				t.Fatalf("split: %v", err)
			}

			// Concatenating chunk texts with the shared prefix of each
			// non-first chunk removed must reproduce the document exactly.
			var sb strings.Builder
			for i, c := range chunks {
				runes := []rune(c.Text)
				if i == 0 {
					sb.WriteString(c.Text)
					continue
				}
				skip := min(tt.overlap, len(runes))
				sb.WriteString(string(runes[skip:]))
			}
			if sb.String() != tt.content {
				t.Errorf("reconstruction mismatch:\n got %q\nwant %q", sb.String(), tt.content)
			}
		})
	}
}

func TestSplit_MonotonicOrderedWindows(t *testing.T) {
	t.Parallel()
	chunks, err := SplitAll(testDoc(strings.Repeat("z", 123)), 20, 5)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Index != chunks[i-1].Index+1 {
			t.Errorf("index not sequential at %d", i)
		}
		if chunks[i].Start <= chunks[i-1].Start {
			t.Errorf("start not monotonically increasing at %d", i)
		}
		if chunks[i].Start != chunks[i-1].Start+15 {
			t.Errorf("stride violated at %d: %d -> %d", i, chunks[i-1].Start, chunks[i].Start)
		}
	}
}

func TestSplit_DeterministicAndRestartable(t *testing.T) {
	t.Parallel()
	doc := testDoc(strings.Repeat("determinism ", 40))

	seq, err := Split(doc, 32, 8)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	var first, second []Chunk
	for c := range seq {
		first = append(first, c)
	}
	for c := range seq {
		second = append(second, c)
	}

	if len(first) != len(second) {
		t.Fatalf("restarted sequence length differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between iterations", i)
		}
	}
}

func TestSplit_LazyStopsEarly(t *testing.T) {
	t.Parallel()
	seq, err := Split(testDoc(strings.Repeat("a", 1000)), 10, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	seen := 0
	for range seq {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Errorf("want early termination after 3 chunks, saw %d", seen)
	}
}

func TestSplit_ProvenanceInherited(t *testing.T) {
	t.Parallel()
	doc := document.Document{Path: "/corpus/guide.md", Content: "hello world", Format: document.FormatMarkdown}

	chunks, err := SplitAll(doc, 50, 10)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if chunks[0].Source != "/corpus/guide.md" {
		t.Errorf("source: got %q", chunks[0].Source)
	}
	if chunks[0].Format != document.FormatMarkdown {
		t.Errorf("format: got %q", chunks[0].Format)
	}
}
