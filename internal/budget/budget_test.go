package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docq-go/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"), // 4 overhead + 1 (role) + 2 (content) = 7
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_TrimDocuments_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Source: "a.txt", Content: "short"},
		{Source: "b.txt", Content: "also short"},
	}
	got := TrimDocuments(docs, "question", DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 documents, got %d", len(got))
	}
}

func Test_TrimDocuments_DropsLowestRankFirst(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Source: "best.txt", Content: strings.Repeat("a", 400)},   // ~100 tokens
		{Source: "second.txt", Content: strings.Repeat("b", 400)}, // ~100 tokens
		{Source: "worst.txt", Content: strings.Repeat("c", 400)},  // ~100 tokens
	}
	// Budget fits roughly two documents. The tail (lowest rank) goes first.
	got := TrimDocuments(docs, "q", 250)
	if len(got) != 2 {
		t.Fatalf("want 2 documents after trim, got %d", len(got))
	}
	if got[0].Source != "best.txt" || got[1].Source != "second.txt" {
		t.Errorf("wrong documents retained: %q, %q", got[0].Source, got[1].Source)
	}
}

func Test_TrimDocuments_FirstAlwaysKept(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Source: "huge.txt", Content: strings.Repeat("x", 4*7000)},
	}
	got := TrimDocuments(docs, "q", 100)
	if len(got) != 1 {
		t.Errorf("the top-ranked document must survive trimming, got %d docs", len(got))
	}
}

func Test_TrimHistory_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{schema.SystemMessage("sys")}
	history := []*schema.Message{
		schema.UserMessage("hi"),
		schema.UserMessage("there"),
	}
	got := TrimHistory(fixed, history, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 history messages, got %d", len(got))
	}
}

func Test_TrimHistory_DropsOldest(t *testing.T) {
	t.Parallel()
	history := []*schema.Message{
		schema.UserMessage("oldest"),
		schema.UserMessage("newest"),
	}
	// Each history message costs: 4 overhead + 1 (role) + 1 (content) = 6 tokens.
	// Budget of 7 fits exactly one message but not two.
	fixed := []*schema.Message{}
	got := TrimHistory(fixed, history, 7)
	if len(got) != 1 {
		t.Errorf("want 1 history message after trim, got %d", len(got))
	}
	if got[0].Content != "newest" {
		t.Errorf("want newest message retained, got %q", got[0].Content)
	}
}

func Test_TrimHistory_AllDroppedWhenFixedExceedsBudget(t *testing.T) {
	t.Parallel()
	fixed := []*schema.Message{
		schema.SystemMessage(strings.Repeat("x", 4*7000)), // ~7000 tokens
	}
	history := []*schema.Message{
		schema.UserMessage("a"),
		schema.UserMessage("b"),
	}
	got := TrimHistory(fixed, history, 6000)
	if len(got) != 0 {
		t.Errorf("want 0 history messages, got %d", len(got))
	}
}
