// Package llm streams chat completions from a local Ollama server.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/tutor/internal/model"
)

// DefaultBaseURL is the stock local Ollama endpoint.
const DefaultBaseURL = "http://localhost:11434"

// DefaultTimeout bounds a single streaming request.
const DefaultTimeout = 60 * time.Second

// Model identifiers and their picker labels.
var ModelOptions = map[string]string{
	"LLaMA 3 (General / Python)":                  "llama3",
	"Mistral (Guitar / Music Theory)":             "mistral",
	"⚠️ DeepSeek Coder v2 (Heavy - Code Focused)": "deepseek-coder-v2",
}

// ModelIDs lists the model identifiers in picker order.
var ModelIDs = []string{"llama3", "mistral", "deepseek-coder-v2"}

// LabelFor returns the picker label for a model identifier.
func LabelFor(modelID string) string {
	for label, id := range ModelOptions {
		if id == modelID {
			return label
		}
	}
	return modelID
}

// Streamer yields cumulative reply text for a message list. Each value on the
// channel contains everything emitted so far; the channel is closed when the
// stream completes. Transport failures surface as a single error-text value,
// never as a Go error.
type Streamer interface {
	Stream(ctx context.Context, modelID string, history []model.ChatMessage) <-chan string
}

// Client talks to an Ollama server over its native NDJSON chat endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the given base URL with a fixed request
// timeout. An empty base URL falls back to the local default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// SystemPrompt selects the tutoring persona for a model identifier.
func SystemPrompt(modelID string) string {
	switch modelID {
	case "mistral":
		return "You are a guitar tutor. Only respond to music topics. Use local diagrams only, no external links or tools."
	case "deepseek-coder-v2":
		return "You are an advanced coding assistant. Help with algorithms and explain code clearly."
	default:
		return "You are a Python tutor. Teach concepts clearly. Quiz the user only when they ask."
	}
}

type chatRequest struct {
	Model    string              `json:"model"`
	Messages []model.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type chatChunk struct {
	Message model.ChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// Stream sends the history (callers prepend the system message and apply any
// context window) and emits the growing reply after every received token.
func (c *Client) Stream(ctx context.Context, modelID string, history []model.ChatMessage) <-chan string {
	out := make(chan string, 1)
	go func() {
		defer close(out)
		c.stream(ctx, modelID, history, out)
	}()
	return out
}

func (c *Client) stream(ctx context.Context, modelID string, history []model.ChatMessage, out chan<- string) {
	payload := chatRequest{Model: modelID, Messages: history, Stream: true}
	body, err := json.Marshal(payload)
	if err != nil {
		out <- fmt.Sprintf("❌ Error: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		out <- fmt.Sprintf("❌ Error: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		out <- fmt.Sprintf("❌ Error: %v", err)
		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		out <- fmt.Sprintf("❌ Error: ollama returned status %d", resp.StatusCode)
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	var buffer strings.Builder
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			out <- fmt.Sprintf("❌ Error: %v", ctx.Err())
			return
		default:
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Malformed stream lines are skipped, not fatal.
			continue
		}
		if chunk.Message.Content != "" {
			buffer.WriteString(chunk.Message.Content)
			out <- buffer.String()
		}
		if chunk.Done {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		out <- fmt.Sprintf("❌ Error: %v", err)
	}
}
