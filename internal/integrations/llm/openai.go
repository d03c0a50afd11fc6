package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog/log"
)

type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int
}

func NewOpenAI(apiKey, model string, maxTokens int, httpClient *http.Client, opts ...option.RequestOption) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAI{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (o *OpenAI) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(o.maxTokens)),
	})
	defer stream.Close()

	size := 0
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		size += len(text)
		if err := emit(text); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil {
		log.Error().Err(err).Str("component", "llm").Str("provider", "openai").Msg("llm stream failed")
		return fmt.Errorf("openai api error: %w", err)
	}
	log.Info().Str("component", "llm").Str("provider", "openai").Str("model", o.model).Int("size", size).Msg("llm stream done")
	return nil
}
