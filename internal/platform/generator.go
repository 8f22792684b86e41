package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/service"
)

// Generator produces post copy through an OpenAI-compatible chat
// completion endpoint. It implements service.ContentGenerator.
type Generator struct {
	cfg    config.Config
	client *http.Client
}

func NewGenerator(cfg config.Config) *Generator {
	return &Generator{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (g *Generator) GenerateContent(ctx context.Context, params service.GenerationParams) (string, error) {
	if g.cfg.AIAPIKey == "" {
		return "", errors.New("AI API key is not configured")
	}

	payload := map[string]interface{}{
		"model": g.cfg.AIModel,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You write social media posts. Reply with the post text only, no preamble.",
			},
			{
				"role":    "user",
				"content": buildPrompt(params),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.AIAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.AIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("generation request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error decoding generation response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("generation response contained no choices")
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("generation produced empty content")
	}
	return content, nil
}

func buildPrompt(params service.GenerationParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s post about: %s.", params.Platform, params.Topic)
	if params.Tone != "" {
		fmt.Fprintf(&b, " Tone: %s.", params.Tone)
	}
	if params.Language != "" {
		fmt.Fprintf(&b, " Language: %s.", params.Language)
	}
	return b.String()
}
