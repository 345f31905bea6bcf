// Package llm implements the text analysis provider port over the OpenAI
// chat completions API. A client constructed without an API key is a silent
// no-op: sentiment and keyword calls return empty results instead of errors,
// so ingestion keeps working when the feature is disabled.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	sentimentSystemPrompt = "You are a sentiment analysis AI."
	keywordSystemPrompt   = "You are a keyword extraction AI."

	// maxKeywordInputs bounds how many comment texts go into one
	// keyword-extraction request.
	maxKeywordInputs = 100
)

var (
	scoreRegex = regexp.MustCompile(`(?i)score\s*[:：]\s*(-?[0-9.]+)`)
	labelRegex = regexp.MustCompile(`(?i)label\s*[:：]\s*(\w+)`)
)

// SentimentResult holds one comment's sentiment classification. All fields
// are nil when analysis is disabled or the response could not be parsed.
type SentimentResult struct {
	Score *float64
	Label *string
	Raw   json.RawMessage
}

// completer abstracts the chat completion call for testing.
type completer interface {
	complete(ctx context.Context, system, user string) (string, json.RawMessage, error)
}

type openaiCompleter struct {
	client openai.Client
	model  string
}

func (o *openaiCompleter) complete(ctx context.Context, system, user string) (string, json.RawMessage, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               openai.ChatModel(o.model),
		MaxCompletionTokens: openai.Int(100),
		Temperature:         openai.Float(0.2),
	})
	if err != nil {
		return "", nil, fmt.Errorf("chat completion: %w", err)
	}

	raw, err := json.Marshal(completion)
	if err != nil {
		return "", nil, fmt.Errorf("marshal completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", raw, nil
	}

	return completion.Choices[0].Message.Content, raw, nil
}

// Client talks to the OpenAI API. The zero-value-like disabled client
// (empty API key) performs no remote calls.
type Client struct {
	completer completer
	enabled   bool
}

// NewClient creates a new LLM client. An empty API key yields a disabled
// client rather than an error.
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return &Client{}
	}

	return &Client{
		completer: &openaiCompleter{
			client: openai.NewClient(option.WithAPIKey(apiKey)),
			model:  model,
		},
		enabled: true,
	}
}

// Enabled reports whether the client is configured with an API key.
func (c *Client) Enabled() bool {
	return c.enabled
}

// AnalyzeSentiment classifies the sentiment of one text. The model is asked
// for a score in -1.0..1.0 and a label (positive, negative, neutral), which
// are parsed out of the free-form response. Every field of the result is nil
// when the client is disabled or nothing parseable came back.
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (*SentimentResult, error) {
	if !c.enabled {
		return &SentimentResult{}, nil
	}

	prompt := fmt.Sprintf(
		"Classify the sentiment of the following text in one line, returning a score (-1.0 to 1.0) and a label (positive, negative, neutral) in the form \"score: <score>\\nlabel: <label>\".\nText: %s",
		text,
	)

	content, raw, err := c.completer.complete(ctx, sentimentSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	result := parseSentiment(content)
	if result.Score != nil || result.Label != nil {
		result.Raw = raw
	}

	return result, nil
}

// parseSentiment extracts score and label from free-form completion text,
// e.g. "score: 0.8\nlabel: positive".
func parseSentiment(content string) *SentimentResult {
	result := &SentimentResult{}

	if matches := scoreRegex.FindStringSubmatch(content); matches != nil {
		if score, err := strconv.ParseFloat(matches[1], 64); err == nil {
			result.Score = &score
		}
	}

	if matches := labelRegex.FindStringSubmatch(content); matches != nil {
		label := strings.ToLower(matches[1])
		result.Label = &label
	}

	return result
}

// ExtractKeywords sends up to the first 100 texts to the model in a single
// request and asks for a comma-separated keyword list. The response is split
// on commas, trimmed, and truncated to maxKeywords. Returns an empty list
// when the client is disabled.
func (c *Client) ExtractKeywords(ctx context.Context, texts []string, maxKeywords int) ([]string, error) {
	if !c.enabled {
		return []string{}, nil
	}

	if len(texts) > maxKeywordInputs {
		texts = texts[:maxKeywordInputs]
	}

	prompt := fmt.Sprintf(
		"Extract up to %d important keywords from the following comments, comma-separated. Return only the words.\nComments:\n%s",
		maxKeywords,
		strings.Join(texts, "\n"),
	)

	content, _, err := c.completer.complete(ctx, keywordSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	return parseKeywords(content, maxKeywords), nil
}

// parseKeywords splits a comma-separated response into trimmed, non-empty
// keywords, capped at maxKeywords.
func parseKeywords(content string, maxKeywords int) []string {
	keywords := make([]string, 0, maxKeywords)
	for _, part := range strings.Split(content, ",") {
		keyword := strings.TrimSpace(part)
		if keyword == "" {
			continue
		}
		keywords = append(keywords, keyword)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}
