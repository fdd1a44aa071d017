// Package summarize produces short digest summaries for ranked items via the
// Gemini API, under a per-run request budget.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/kagari/newsdigest/internal/logger"
)

const maxPromptChars = 6000

// Summarizer is what the orchestrator needs: one call per item, error per
// item, never per batch. callerTag names the invoking source for usage
// attribution in logs.
type Summarizer interface {
	Summarize(ctx context.Context, title, body, callerTag string) (string, error)
	Close()
}

type Client struct {
	client *genai.Client
	model  string
	budget *Budget
}

func NewClient(ctx context.Context, apiKey, model string, budget *Budget) (*Client, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model, budget: budget}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Summarize asks the model for a three-sentence plain summary of one item.
// A spent budget or API failure is an error for this item only; the caller
// decides what placeholder to persist.
func (c *Client) Summarize(ctx context.Context, title, body, callerTag string) (string, error) {
	if c.budget != nil {
		if err := c.budget.Take(); err != nil {
			return "", err
		}
	}

	model := c.client.GenerativeModel(c.model)
	prompt := buildPrompt(title, body)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	raw := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	out := Sanitize(raw)
	if out == "" {
		return "", fmt.Errorf("response contained no usable text")
	}
	logger.Debug("item summarized", "source", callerTag, "title", title, "chars", len(out))
	return out, nil
}

func buildPrompt(title, body string) string {
	body = strings.ReplaceAll(body, "\r", "")
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) > maxPromptChars {
		runes := []rune(body)
		trimmed := string(runes[:maxPromptChars])
		if idx := strings.LastIndexAny(trimmed, "。."); idx > 1200 {
			trimmed = trimmed[:idx+1]
		}
		body = trimmed + "\n[TRUNCATED]"
	}

	return fmt.Sprintf(`次のニュース記事を要約してください。

記事:
タイトル: %s
本文: %s

要件:
- 3文以内、日本語で簡潔に。
- 「この記事は」などの前置きを付けない。
- 要約本文のみを出力する。ラベルや説明は不要。
`, title, body)
}
