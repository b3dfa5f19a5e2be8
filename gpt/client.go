package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	connectTimeout = 30 * time.Second
	readTimeout    = 60 * time.Second
)

// UpstreamError wraps any failure talking to the generation service:
// unreachable, non-2xx, or a malformed body. Calls are never retried.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gpt service: %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Client talks to the question-generation service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
	}
}

// CreateForm asks the service to generate a whole survey on a topic.
func (c *Client) CreateForm(ctx context.Context, req FormGenerationRequest) (*FormSchema, error) {
	var form FormSchema
	if err := c.post(ctx, "/forms/create", req, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

// GenerateQuestion asks the service for a single question.
func (c *Client) GenerateQuestion(ctx context.Context, req QuestionGenerationRequest) (*QuestionSchema, error) {
	var question QuestionSchema
	if err := c.post(ctx, "/questions/generate", req, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// ImproveQuestion asks the service to rephrase an existing question.
func (c *Client) ImproveQuestion(ctx context.Context, req QuestionImprovementRequest) (*QuestionSchema, error) {
	var question QuestionSchema
	if err := c.post(ctx, "/questions/improve", req, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// GenerateQuestions asks the service for several questions at once,
// sending the survey's existing questions as context. An empty result
// is treated as an upstream failure.
func (c *Client) GenerateQuestions(ctx context.Context, req MultipleQuestionGenerationRequest) ([]QuestionSchema, error) {
	var questions []QuestionSchema
	if err := c.post(ctx, "/questions/generate_multiple", req, &questions); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, &UpstreamError{Op: "POST /questions/generate_multiple", Err: fmt.Errorf("no questions returned")}
	}
	return questions, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	op := "POST " + path

	payload, err := json.Marshal(body)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &UpstreamError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	return nil
}
