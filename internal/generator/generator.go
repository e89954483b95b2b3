package generator

import "context"

// TokenUsage reports what a generation actually consumed, as counted by
// the model provider.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is one completed generation.
type Result struct {
	Text         string     `json:"text"`
	FinishReason string     `json:"finish_reason"`
	Model        string     `json:"model"`
	Usage        TokenUsage `json:"usage"`
}

// Client produces text from a prompt. Implementations are expected to be
// safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (*Result, error)
}
