// Package pipeline wires retrieval and generation into the question-answering
// flow: embed the question, search the vector store, assemble a grounded
// prompt, and run the chat model — optionally streaming tokens as they arrive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docq-go/internal/budget"
	"github.com/54b3r/docq-go/internal/rag"
)

// NoContextMarker is embedded as the context block when retrieval finds
// nothing to ground an answer in. The chat model still runs, so the user gets
// an ungrounded answer instead of a canned refusal; the marker tells the
// model (and anyone inspecting the prompt) that no documents matched.
const NoContextMarker = "No relevant context found."

// promptPreamble instructs the model to stay inside the retrieved context.
const promptPreamble = "You are a helpful assistant that answers questions about a document collection. " +
	"Use the following context excerpts to answer the user's question. " +
	"If the answer is not contained in the context, say that you could not find it " +
	"in the indexed documents instead of guessing."

// Config holds the dependencies and tuning knobs for a Pipeline.
type Config struct {
	// Retriever resolves a question into relevant documents.
	Retriever rag.Retriever

	// ChatModel generates the answer. Any eino chat model works.
	ChatModel model.BaseChatModel

	// TopK is the default number of documents retrieved per question.
	// Defaults to 5 if zero.
	TopK int

	// MaxContextTokens caps the estimated size of the assembled prompt.
	// Retrieved documents are dropped lowest-rank-first to fit.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Answer is the result of one question-answering run.
type Answer struct {
	// Text is the model's full response.
	Text string

	// Sources lists the distinct document sources that grounded the answer,
	// in first-appearance rank order.
	Sources []string
}

// Event is one element of a streaming answer. Token events carry incremental
// response text; the final event carries the deduplicated sources instead.
type Event struct {
	// Token is a fragment of the response text. Empty on the final event.
	Token string

	// Sources is set only on the final event of a successful stream.
	Sources []string

	// Err terminates the stream when non-nil.
	Err error

	// Done marks the final event of the stream.
	Done bool
}

// Pipeline answers questions over the indexed document collection.
type Pipeline struct {
	retriever        rag.Retriever
	chatModel        model.BaseChatModel
	topK             int
	maxContextTokens int
}

// New constructs a Pipeline from the given config.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil || cfg.Retriever == nil {
		return nil, fmt.Errorf("pipeline: retriever must not be nil: %w", rag.ErrConfig)
	}
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("pipeline: chat model must not be nil: %w", rag.ErrConfig)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Pipeline{
		retriever:        cfg.Retriever,
		chatModel:        cfg.ChatModel,
		topK:             topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer runs the full retrieve → prompt → generate flow and blocks until the
// model's response is complete. topK selects how many documents to retrieve;
// zero means the pipeline default. history carries prior conversation turns
// (may be nil) and is trimmed oldest-first to fit the token budget.
func (p *Pipeline) Answer(ctx context.Context, question string, topK int, history []*schema.Message) (*Answer, error) {
	messages, sources, err := p.buildMessages(ctx, question, topK, history)
	if err != nil {
		return nil, err
	}

	msg, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("pipeline: generate: %w (%w)", err, rag.ErrGeneration)
	}

	return &Answer{Text: msg.Content, Sources: sources}, nil
}

// AnswerStream runs the same flow as Answer but streams the response. The
// returned channel yields token events as the model produces them, followed
// by exactly one Done event carrying the sources (or an Err event on stream
// failure), and is then closed. Cancelling ctx stops the stream.
//
// Retrieval and prompt assembly happen synchronously, so retrieval errors are
// returned here rather than on the channel.
func (p *Pipeline) AnswerStream(ctx context.Context, question string, topK int, history []*schema.Message) (<-chan Event, error) {
	messages, sources, err := p.buildMessages(ctx, question, topK, history)
	if err != nil {
		return nil, err
	}

	events := make(chan Event)

	sr, err := p.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("pipeline: stream: %w (%w)", err, rag.ErrGeneration)
	}

	go func() {
		defer close(events)
		defer sr.Close()

		for {
			msg, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				select {
				case events <- Event{Sources: sources, Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				select {
				case events <- Event{Err: fmt.Errorf("pipeline: stream receive: %w (%w)", err, rag.ErrGeneration), Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if msg == nil || msg.Content == "" {
				continue
			}
			select {
			case events <- Event{Token: msg.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// buildMessages retrieves context for the question and assembles the prompt.
// When retrieval finds nothing the prompt carries NoContextMarker as its
// context block and the returned sources are empty; generation still happens.
func (p *Pipeline) buildMessages(ctx context.Context, question string, topK int, history []*schema.Message) ([]*schema.Message, []string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil, fmt.Errorf("pipeline: question must not be empty: %w", rag.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = p.topK
	}

	docs, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline: retrieve: %w", err)
	}

	docs = budget.TrimDocuments(docs, question, p.maxContextTokens)

	fixed := []*schema.Message{
		schema.SystemMessage(buildContext(docs)),
		schema.UserMessage(question),
	}
	history = budget.TrimHistory(fixed, history, p.maxContextTokens)

	messages := make([]*schema.Message, 0, 1+len(history)+1)
	messages = append(messages, fixed[0])
	messages = append(messages, history...)
	messages = append(messages, fixed[1])

	return messages, dedupeSources(docs), nil
}

// buildContext formats retrieved documents into the system message that
// grounds the model's answer. With no documents the context block is the
// NoContextMarker, so the model answers ungrounded rather than not at all.
func buildContext(docs []rag.Document) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	sb.WriteString("\n\n## Context\n\n")
	if len(docs) == 0 {
		sb.WriteString(NoContextMarker)
		sb.WriteString("\n")
		return sb.String()
	}
	for i, doc := range docs {
		fmt.Fprintf(&sb, "### Source %d: %s\n%s\n\n", i+1, doc.Source, doc.Content)
	}
	return sb.String()
}

// dedupeSources returns the distinct document sources in first-appearance
// order. Rank order is preserved: the best-matching document's source comes
// first.
func dedupeSources(docs []rag.Document) []string {
	seen := make(map[string]struct{}, len(docs))
	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Source == "" {
			continue
		}
		if _, ok := seen[d.Source]; ok {
			continue
		}
		seen[d.Source] = struct{}{}
		sources = append(sources, d.Source)
	}
	return sources
}
