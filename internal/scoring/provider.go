// internal/scoring/provider.go
//
// Scoring backends. Each Provider knows its endpoint, auth header shape, and
// where the model's text lives in the response. A provider is chosen once per
// game, by key, when the game is created.
//
// Supported keys: "mistral" (default), "openai", "anthropic".

package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Provider builds requests for one scoring backend and extracts the model
// text from its responses.
type Provider interface {
	Name() string
	NewRequest(ctx context.Context, p Prompt) (*http.Request, error)
	Content(body []byte) (string, error)
}

// Backend is the connection info shared by all providers.
type Backend struct {
	URL    string
	APIKey string
	Model  string
}

// Provider keys.
const (
	KeyMistral   = "mistral"
	KeyOpenAI    = "openai"
	KeyAnthropic = "anthropic"
)

// ErrUnknownProvider is returned by Catalog.Lookup for an unregistered key.
var ErrUnknownProvider = errors.New("unknown_provider")

// errNoContent marks a well-formed response without model text.
var errNoContent = errors.New("scoring: response has no content")

// ------------------------- chat-completions family --------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func newChatRequest(ctx context.Context, b Backend, p Prompt) (*http.Request, error) {
	body, err := json.Marshal(chatRequest{
		Model:       b.Model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)
	return req, nil
}

func chatContent(body []byte) (string, error) {
	var r chatResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(r.Choices) == 0 || r.Choices[0].Message.Content == "" {
		return "", errNoContent
	}
	return r.Choices[0].Message.Content, nil
}

// Mistral talks to the Mistral chat completions API.
type Mistral struct{ Backend }

func (Mistral) Name() string { return KeyMistral }

func (m Mistral) NewRequest(ctx context.Context, p Prompt) (*http.Request, error) {
	return newChatRequest(ctx, m.Backend, p)
}

func (Mistral) Content(body []byte) (string, error) { return chatContent(body) }

// OpenAI talks to the OpenAI chat completions API.
type OpenAI struct{ Backend }

func (OpenAI) Name() string { return KeyOpenAI }

func (o OpenAI) NewRequest(ctx context.Context, p Prompt) (*http.Request, error) {
	return newChatRequest(ctx, o.Backend, p)
}

func (OpenAI) Content(body []byte) (string, error) { return chatContent(body) }

// ------------------------------- anthropic ----------------------------------

const anthropicVersion = "2023-06-01"

// Anthropic talks to the Anthropic messages API.
type Anthropic struct {
	Backend
	MaxTokens int // defaults to 1024
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system"`
	Messages    []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (Anthropic) Name() string { return KeyAnthropic }

func (a Anthropic) NewRequest(ctx context.Context, p Prompt) (*http.Request, error) {
	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body, err := json.Marshal(anthropicRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		System:    p.System,
		Messages:  []chatMessage{{Role: "user", Content: p.User}},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

func (Anthropic) Content(body []byte) (string, error) {
	var r anthropicResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("decode messages response: %w", err)
	}
	var sb strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errNoContent
	}
	return sb.String(), nil
}

// -------------------------------- catalog -----------------------------------

// Catalog maps provider keys to providers.
type Catalog struct {
	byKey map[string]Provider
	def   string
}

// NewCatalog registers providers under their Name. def is the key used when
// a lookup names no provider.
func NewCatalog(def string, providers ...Provider) *Catalog {
	c := &Catalog{byKey: make(map[string]Provider, len(providers)), def: def}
	for _, p := range providers {
		c.byKey[p.Name()] = p
	}
	return c
}

// Lookup resolves a provider key, case-insensitively. An empty key selects
// the default provider.
func (c *Catalog) Lookup(key string) (Provider, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = c.def
	}
	p, ok := c.byKey[key]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Keys lists the registered provider keys in sorted order.
func (c *Catalog) Keys() []string {
	out := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
