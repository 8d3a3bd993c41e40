// Package api is the JSON client for the experiment backend. Every
// response shares an envelope {error?, data?}; absence of error is
// success.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stimline-cli/internal/model"
)

// Client talks to the experiment backend with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken replaces the bearer token (e.g. after login).
func (c *Client) SetToken(token string) { c.token = token }

// Response is the backend envelope. Error is kept raw: the backend may
// send a string or an object, and callers only need presence + a message.
type Response struct {
	Error json.RawMessage `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Failed reports whether the envelope carries an error marker.
func (r Response) Failed() bool {
	e := strings.TrimSpace(string(r.Error))
	return e != "" && e != "null"
}

// ErrorMessage extracts a human-readable message from the error marker.
func (r Response) ErrorMessage() string {
	if !r.Failed() {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(r.Error)
}

// RequestError is a transport or protocol failure (network, bad status,
// unparseable body). It never carries a backend error envelope.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *RequestError) Unwrap() error { return e.Err }

func (c *Client) do(ctx context.Context, method, path string, payload any) (Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Response{}, &RequestError{Op: method + " " + path, Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Response{}, &RequestError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &RequestError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &RequestError{Op: method + " " + path, Err: err}
	}

	var env Response
	if err := json.Unmarshal(raw, &env); err != nil {
		return Response{}, &RequestError{Op: method + " " + path, Err: fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)}
	}
	return env, nil
}

func decodeData(env Response, op string, out any) error {
	if env.Failed() {
		return &RequestError{Op: op, Err: fmt.Errorf("backend error: %s", env.ErrorMessage())}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func (c *Client) CreateExperiment(ctx context.Context, data model.CreateExperiment) (Response, error) {
	return c.do(ctx, http.MethodPost, "/experiments", data)
}

func (c *Client) GetUserExperiments(ctx context.Context) ([]model.ExperimentWithTimeline, error) {
	env, err := c.do(ctx, http.MethodGet, "/experiments/user", nil)
	if err != nil {
		return nil, err
	}
	var out []model.ExperimentWithTimeline
	if err := decodeData(env, "get user experiments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExperimentByID(ctx context.Context, id string) (model.ExperimentWithTimeline, error) {
	env, err := c.do(ctx, http.MethodGet, "/experiments/"+id, nil)
	if err != nil {
		return model.ExperimentWithTimeline{}, err
	}
	var out model.ExperimentWithTimeline
	if err := decodeData(env, "get experiment "+id, &out); err != nil {
		return model.ExperimentWithTimeline{}, err
	}
	return out, nil
}

func (c *Client) JoinExperiment(ctx context.Context, experimentID, userID, accessCode string) (Response, error) {
	return c.do(ctx, http.MethodPost, "/experiments/join", map[string]string{
		"experimentId": experimentID,
		"userId":       userID,
		"accessCode":   accessCode,
	})
}

func (c *Client) AddParticipantToExperiment(ctx context.Context, experimentID, userID string) (Response, error) {
	return c.do(ctx, http.MethodPost, "/experiments/participants", map[string]string{
		"experimentId": experimentID,
		"userId":       userID,
	})
}

func (c *Client) GetExperimentParticipants(ctx context.Context, experimentID string) ([]model.Participant, error) {
	env, err := c.do(ctx, http.MethodGet, "/experiments/"+experimentID+"/participants", nil)
	if err != nil {
		return nil, err
	}
	var out []model.Participant
	if err := decodeData(env, "get participants", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExperimentScientists(ctx context.Context, experimentID string) ([]model.Scientist, error) {
	env, err := c.do(ctx, http.MethodGet, "/experiments/"+experimentID+"/scientists", nil)
	if err != nil {
		return nil, err
	}
	var out []model.Scientist
	if err := decodeData(env, "get scientists", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserExperimentResult(ctx context.Context, userID, experimentID string) (Response, error) {
	return c.do(ctx, http.MethodGet, "/experiments/"+experimentID+"/results/"+userID, nil)
}

func (c *Client) GetTasks(ctx context.Context) ([]model.Task, error) {
	env, err := c.do(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	var out []model.Task
	if err := decodeData(env, "get tasks", &out); err != nil {
		return nil, err
	}
	return out, nil
}
