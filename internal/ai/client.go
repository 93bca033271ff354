// Package ai wraps a Gemini-style generative-text API behind the advisor
// operations. Every failure comes back as a structured result, never a
// panic or an unhandled fault.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// preferredModels in priority order: stable models with generous free
// quota first. Experimental/preview models are skipped entirely.
var preferredModels = []string{
	"models/gemini-1.5-flash",
	"models/gemini-1.5-pro",
	"models/gemini-pro",
	"models/gemini-1.0-pro",
}

var experimentalMarkers = []string{"exp", "experimental", "beta", "preview"}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	model   string
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelInfo describes one generative model offered by the API.
type ModelInfo struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// APIError carries the HTTP status and message of a failed call so the
// advisor can classify it (invalid key, quota, model unavailable).
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// ListModels returns the models able to generate content.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models?key="+c.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("build list models request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed listModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	var out []ModelInfo
	for _, m := range parsed.Models {
		if supportsGeneration(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func supportsGeneration(m ModelInfo) bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

func isExperimental(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range experimentalMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ResolveModel picks the model used for generation: the first preferred
// stable model the key can access, else the first stable one available.
func (c *Client) ResolveModel(ctx context.Context) (string, error) {
	if c.model != "" {
		return c.model, nil
	}

	models, err := c.ListModels(ctx)
	if err != nil {
		return "", err
	}

	available := map[string]bool{}
	var stable []string
	for _, m := range models {
		if isExperimental(m.Name) {
			continue
		}
		available[m.Name] = true
		stable = append(stable, m.Name)
	}

	for _, preferred := range preferredModels {
		if available[preferred] {
			c.model = preferred
			return c.model, nil
		}
	}
	if len(stable) > 0 {
		c.model = stable[0]
		return c.model, nil
	}
	return "", &APIError{StatusCode: http.StatusNotFound, Message: "no usable model found"}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends one prompt and returns the model's text reply.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	model, err := c.ResolveModel(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &APIError{StatusCode: http.StatusInternalServerError, Message: "empty response from model"}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call generative api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read api response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}
	return body, nil
}

func apiMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

var retryRe = regexp.MustCompile(`retry in (\d+\.?\d*)s`)

// RetryAfterSeconds extracts the advisory retry delay from a quota error
// message, 0 when absent.
func RetryAfterSeconds(msg string) int {
	m := retryRe.FindStringSubmatch(strings.ToLower(msg))
	if m == nil {
		return 0
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return int(f)
}
