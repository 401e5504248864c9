package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/omnidoc/omnidoc/internal/ollama"
	"github.com/omnidoc/omnidoc/internal/retrieval"
)

const generateTimeout = 2 * time.Minute

// Generative answers with one free-form model call over all ranked chunks
// joined into a single context block. No confidence gating.
type Generative struct {
	client Chatter
	model  string
}

// NewGenerative creates the generative strategy using the given chat client
// and model name.
func NewGenerative(client Chatter, model string) *Generative {
	return &Generative{client: client, model: model}
}

// Answer implements Strategy.
func (g *Generative) Answer(ctx context.Context, query string, ranked []retrieval.ScoredChunk) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	contents := make([]string, len(ranked))
	for i, c := range ranked {
		contents[i] = c.Content
	}
	contextBlock := strings.Join(contents, "\n\n")

	prompt := fmt.Sprintf(
		"You are a helpful AI assistant. Answer the user's question based on the "+
			"provided context from their documents. If you cannot find the answer in "+
			"the context, say so clearly.\n\n"+
			"Context from documents:\n%s\n\n"+
			"User question: %s\n\n"+
			"Please provide a clear, helpful answer based on the context above:",
		contextBlock, query)

	text, err := g.client.Chat(ctx, g.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationService, err)
	}
	return strings.TrimSpace(text), nil
}
