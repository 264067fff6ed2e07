package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const defaultRequestTimeout = 120 * time.Second

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient builds a client for one upstream endpoint. baseURL is
// the API root (for example https://api.example.com/v1).
func NewOpenAIClient(name, baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// Name identifies the provider in logs and failover decisions.
func (c *OpenAIClient) Name() string { return c.name }

// Complete sends the conversation upstream. With stream=true the returned
// Result carries the decompressed response body for SSE consumption; the
// caller owns closing it.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, stream bool) (*Result, error) {
	body, err := c.buildPayload(messages, stream)
	if err != nil {
		return nil, fmt.Errorf("%s: build payload: %w", c.name, err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.name, err)
	}
	c.applyHeaders(req, stream)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	decoded, err := decodeBody(resp)
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s: decode body: %w", c.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(decoded, 4096))
		_ = decoded.Close()
		return nil, &StatusError{Provider: c.name, Code: resp.StatusCode, Body: string(data)}
	}

	if stream {
		return &Result{Body: decoded}, nil
	}

	data, err := io.ReadAll(decoded)
	closeErr := decoded.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", c.name, err)
	}
	if closeErr != nil {
		log.Warnf("%s: close body: %v", c.name, closeErr)
	}

	text := gjson.GetBytes(data, "choices.0.message.content").String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: empty completion body", c.name)
	}
	return &Result{Text: text}, nil
}

// buildPayload assembles the chat-completions request JSON.
func (c *OpenAIClient) buildPayload(messages []Message, stream bool) ([]byte, error) {
	payload := ""
	payload, err := sjson.Set(payload, "model", c.model)
	if err != nil {
		return nil, err
	}
	if payload, err = sjson.Set(payload, "stream", stream); err != nil {
		return nil, err
	}
	for i, msg := range messages {
		if payload, err = sjson.Set(payload, fmt.Sprintf("messages.%d.role", i), msg.Role); err != nil {
			return nil, err
		}
		if payload, err = sjson.Set(payload, fmt.Sprintf("messages.%d.content", i), msg.Content); err != nil {
			return nil, err
		}
	}
	return []byte(payload), nil
}

func (c *OpenAIClient) applyHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Accept-Encoding", "gzip, br")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// decodeBody wraps the response body according to Content-Encoding so
// downstream readers always see plain bytes.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		return &wrappedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil
	case "br":
		return &wrappedBody{Reader: brotli.NewReader(resp.Body), closers: []io.Closer{resp.Body}}, nil
	default:
		return resp.Body, nil
	}
}

type wrappedBody struct {
	io.Reader
	closers []io.Closer
}

func (w *wrappedBody) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
