package subjective

import (
	"context"
	"fmt"

	"github.com/Extazy1/ezmark/internal/providers"
)

// Recognize grades one answer crop with a single synchronous model call.
// The subjective stage prefetches suggestions through the job system;
// this path serves a review request whose cached suggestion is still
// pending. The returned score is clamped to [0, MaxScore], with the
// failure sentinel preserved.
func Recognize(ctx context.Context, client providers.LLMClient, input Input) (*Result, error) {
	unit := CreateWorkUnit(input)
	res, err := client.Chat(ctx, unit.ChatRequest)
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}
	if res == nil || len(res.ParsedJSON) == 0 {
		return nil, fmt.Errorf("model returned no structured suggestion")
	}
	result, err := ParseResult(res.ParsedJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse suggestion: %w", err)
	}
	result.Score = result.Clamp(input.MaxScore)
	return result, nil
}
