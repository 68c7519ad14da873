package output

import (
	"context"

	"portal-agent/internal/domain/entity"
)

// LLMPort is the narrow language-model contract: messages in, text out.
// Implementations must surface HTTP and timeout failures as errors,
// never as silently empty text.
type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Temperature float32
	MaxTokens   int
}

type ChatResponse struct {
	Content string
}
