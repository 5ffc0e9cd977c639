package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/lunabot/internal/config"
)

type openAIClient struct {
	client *openai.Client
	cfg    config.AIConfig
	log    *slog.Logger
}

func newOpenAIClient(cfg config.AIConfig, log *slog.Logger) *openAIClient {
	aiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		aiCfg.BaseURL = cfg.BaseURL
	}
	aiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "model", cfg.Model)
	return &openAIClient{
		client: openai.NewClientWithConfig(aiCfg),
		cfg:    cfg,
		log:    logger,
	}
}

// Complete asks the chat completions endpoint for a reply.
func (c *openAIClient) Complete(ctx context.Context, req Request) (string, error) {
	c.log.DebugContext(ctx, "Generating reply", "text_length", len(req.Text))

	chatReq := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction(c.cfg, req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		Temperature: c.cfg.Temperature,
	}

	var resp openai.ChatCompletionResponse
	err := withRetries(ctx, c.log, c.cfg.MaxRetries, time.Duration(c.cfg.RetryDelaySeconds)*time.Second, isRetriableOpenAI,
		func(ctx context.Context) error {
			var err error
			resp, err = c.client.CreateChatCompletion(ctx, chatReq)
			return err
		})
	if err != nil {
		c.log.ErrorContext(ctx, "OpenAI reply generation failed", "error", err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func isRetriableOpenAI(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return false
}
