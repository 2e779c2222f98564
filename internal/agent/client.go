package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/xeipuuv/gojsonschema"
)

const defaultMaxSteps = 50

// Client talks to the browser-agent service. A task is submitted over HTTP
// and its progress follows on a per-task websocket stream; the final "done"
// event carries the structured output, which is validated against the task's
// JSON schema before use.
type Client struct {
	baseURL  string
	apiKey   string
	maxSteps int
	client   *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client, also used for websocket dials.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.client = client }
}

// WithMaxSteps sets the default step budget for tasks that do not set their own.
func WithMaxSteps(n int) ClientOption {
	return func(c *Client) { c.maxSteps = n }
}

// NewClient creates a browser-agent client for the given service URL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		maxSteps: defaultMaxSteps,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type taskRequest struct {
	Task     string          `json:"task"`
	Schema   json.RawMessage `json:"output_schema"`
	MaxSteps int             `json:"max_steps"`
}

type taskResponse struct {
	TaskID string `json:"task_id"`
}

// runTask submits a task, follows its event stream until completion, and
// unmarshals the schema-validated output into out.
func (c *Client) runTask(ctx context.Context, task, schema string, maxSteps int, out any) error {
	if maxSteps <= 0 {
		maxSteps = c.maxSteps
	}

	taskID, err := c.submit(ctx, task, schema, maxSteps)
	if err != nil {
		return err
	}

	output, err := c.follow(ctx, taskID)
	if err != nil {
		return err
	}

	if err := validateOutput(schema, output); err != nil {
		return fmt.Errorf("task %s output rejected: %w", taskID, err)
	}
	if err := json.Unmarshal(output, out); err != nil {
		return fmt.Errorf("unmarshal task output: %w", err)
	}
	return nil
}

func (c *Client) submit(ctx context.Context, task, schema string, maxSteps int) (string, error) {
	body, err := json.Marshal(taskRequest{
		Task:     task,
		Schema:   json.RawMessage(schema),
		MaxSteps: maxSteps,
	})
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("agent api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var tr taskResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if tr.TaskID == "" {
		return "", fmt.Errorf("no task_id in response")
	}
	return tr.TaskID, nil
}

// follow reads the task's event stream until a terminal event arrives.
func (c *Client) follow(ctx context.Context, taskID string) (json.RawMessage, error) {
	conn, _, err := websocket.Dial(ctx, c.baseURL+"/v1/tasks/"+taskID+"/events", &websocket.DialOptions{
		HTTPClient: c.client,
		HTTPHeader: http.Header{"Authorization": {"Bearer " + c.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("dial event stream: %w", err)
	}
	defer conn.CloseNow()

	for {
		var ev StepEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}

		switch ev.Type {
		case eventStep:
			slog.Debug("agent step", "task_id", taskID, "step", ev.Step, "message", ev.Message)
		case eventDone:
			conn.Close(websocket.StatusNormalClosure, "")
			if len(ev.Output) == 0 {
				return nil, fmt.Errorf("task %s finished without output", taskID)
			}
			return ev.Output, nil
		case eventError:
			conn.Close(websocket.StatusNormalClosure, "")
			return nil, fmt.Errorf("task %s failed: %s", taskID, ev.Message)
		default:
			slog.Warn("unknown agent event", "task_id", taskID, "type", ev.Type)
		}
	}
}

// validateOutput checks the agent's structured output against the task schema.
func validateOutput(schema string, output json.RawMessage) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(output),
	)
	if err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// HealthCheck verifies the agent service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
