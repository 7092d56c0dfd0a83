package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
)

// maxEmbedTokens is the input budget of the OpenAI embedding models.
const maxEmbedTokens = 8191

// OpenAIProvider embeds text via the OpenAI embeddings API. The requested
// dimensionality is passed through, so text-embedding-3 models can be
// shortened to match the engine's configured index width.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
	enc    *tiktoken.Tiktoken
	log    *slog.Logger
}

// NewOpenAIProvider reads OPENAI_API_KEY from the environment. The provider
// reports unavailable when no key is set.
func NewOpenAIProvider(model string, dim int, log *slog.Logger) *OpenAIProvider {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if dim <= 0 {
		dim = DefaultDim
	}
	if log == nil {
		log = slog.Default()
	}

	var client *openai.Client
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client = openai.NewClient(key)
	}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Warn("tiktoken encoding unavailable, long inputs will not be clipped", "error", err)
		enc = nil
	}

	return &OpenAIProvider{client: client, model: model, dim: dim, enc: enc, log: log}
}

func (p *OpenAIProvider) Name() string    { return "openai" }
func (p *OpenAIProvider) Model() string   { return p.model }
func (p *OpenAIProvider) Dim() int        { return p.dim }
func (p *OpenAIProvider) Available() bool { return p.client != nil }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.client == nil {
		return nil, ErrUnavailable
	}

	text = p.clip(text)

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// clip truncates text to the model's token budget.
func (p *OpenAIProvider) clip(text string) string {
	if p.enc == nil {
		return text
	}
	tokens := p.enc.Encode(text, nil, nil)
	if len(tokens) <= maxEmbedTokens {
		return text
	}
	p.log.Debug("clipping embedding input", "tokens", len(tokens), "budget", maxEmbedTokens)
	return p.enc.Decode(tokens[:maxEmbedTokens])
}
