package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnidoc/omnidoc/internal/ollama"
	"github.com/omnidoc/omnidoc/internal/retrieval"
)

// maxQAChunks bounds how many ranked chunks the extractive strategy consults.
const maxQAChunks = 5

// confidenceFloor is the minimum confidence for an extracted span to be used.
const confidenceFloor = 0.1

// maxQAContextChars trims a chunk before it is handed to the QA capability.
const maxQAContextChars = 4000

const qaTimeout = 30 * time.Second

// QAClient answers a question from a context passage, with a confidence score
// in [0, 1].
type QAClient interface {
	Answer(ctx context.Context, question, passage string) (answer string, confidence float64, err error)
}

// Extractive answers by selecting the highest-confidence literal span across
// the top ranked chunks. Spans at or below the confidence floor are rejected
// in favor of a fixed fallback.
type Extractive struct {
	qa QAClient
}

// NewExtractive creates the extractive strategy over the given QA capability.
func NewExtractive(qa QAClient) *Extractive {
	return &Extractive{qa: qa}
}

// Answer implements Strategy.
func (e *Extractive) Answer(ctx context.Context, query string, ranked []retrieval.ScoredChunk) (string, error) {
	best := struct {
		text       string
		confidence float64
	}{text: NoConfidentAnswer}

	limit := len(ranked)
	if limit > maxQAChunks {
		limit = maxQAChunks
	}

	for _, c := range ranked[:limit] {
		passage := c.Content
		if len(passage) > maxQAContextChars {
			passage = passage[:maxQAContextChars] + "..."
		}

		text, confidence, err := e.qa.Answer(ctx, query, passage)
		if err != nil {
			return "", fmt.Errorf("%w: answering from chunk %d of document %s: %v",
				ErrGenerationService, c.ChunkIndex, c.DocumentID, err)
		}
		if confidence > best.confidence {
			best.text = text
			best.confidence = confidence
		}
	}

	if best.confidence <= confidenceFloor {
		slog.Debug("no confident span found", "best_confidence", best.confidence)
		return NoConfidentAnswer, nil
	}
	return best.text, nil
}

// Chatter is the structured-output chat capability backing OllamaQA.
// *ollama.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// OllamaQA implements QAClient with a local model constrained to a JSON
// schema, so the span and its confidence come back in one structured reply.
type OllamaQA struct {
	client Chatter
	model  string
}

// NewOllamaQA creates a QAClient using the given chat client and model name.
func NewOllamaQA(client Chatter, model string) *OllamaQA {
	return &OllamaQA{client: client, model: model}
}

type qaReply struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Answer implements QAClient.
func (q *OllamaQA) Answer(ctx context.Context, question, passage string) (string, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, qaTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Answer the question using only a short literal quote from the context. "+
			"If the context does not contain the answer, set confidence to 0.\n\n"+
			"Context: %s\n\nQuestion: %s", passage, question)

	raw, err := q.client.Chat(ctx, q.model, []ollama.Message{
		{Role: "user", Content: prompt},
	}, qaSchema())
	if err != nil {
		return "", 0, err
	}

	var reply qaReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", 0, fmt.Errorf("unmarshalling QA reply: %w", err)
	}

	// Clamp out-of-range model output instead of trusting it.
	if reply.Confidence < 0 {
		reply.Confidence = 0
	}
	if reply.Confidence > 1 {
		reply.Confidence = 1
	}
	return reply.Answer, reply.Confidence, nil
}

func qaSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"answer":     {Type: "string", Description: "Short literal quote from the context answering the question"},
			"confidence": {Type: "number", Description: "How certain the answer is, between 0 and 1"},
		},
		Required: []string{"answer", "confidence"},
	}
}
