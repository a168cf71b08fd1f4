package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// PendingBucket — очереди с одинаковым exec_at.
type PendingBucket struct {
	ExecAt int64    `json:"exec_at"`
	Queues []string `json:"queues"`
}

// ClockSample — сэмпл часов леджера.
type ClockSample struct {
	Slot          uint64 `json:"slot"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// Position — позиция узла в пуле.
type Position struct {
	IsDelegate      bool    `json:"is_delegate"`
	CurrentPosition *uint64 `json:"current_position,omitempty"`
	Workers         int     `json:"workers"`
}

// StateResponse — снимок индексов worker'а.
type StateResponse struct {
	ConfirmedSlot  *uint64         `json:"confirmed_slot,omitempty"`
	ClockSamples   []ClockSample   `json:"clock_samples"`
	Pending        []PendingBucket `json:"pending"`
	Actionable     []string        `json:"actionable"`
	Position       *Position       `json:"position,omitempty"`
	ResultsDropped uint64          `json:"results_dropped"`
}

// QueueStateResponse — положение очереди в индексах.
type QueueStateResponse struct {
	Address    string `json:"address"`
	Pending    bool   `json:"pending"`
	Actionable bool   `json:"actionable"`
}

// ExecutionResponse — запись истории из API.
type ExecutionResponse struct {
	ID        string `json:"id"`
	Queue     string `json:"queue"`
	Slot      uint64 `json:"slot"`
	Status    string `json:"status"`
	Signature string `json:"signature,omitempty"`
	FirstTask uint64 `json:"first_task"`
	TaskCount int    `json:"task_count"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListExecutionsOpts — параметры фильтрации истории.
type ListExecutionsOpts struct {
	Queue  string
	Status string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API cronos-worker.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetState возвращает снимок индексов.
func (c *Client) GetState(ctx context.Context) (*StateResponse, error) {
	var state StateResponse
	err := c.get(ctx, "/api/v1/state", &state)
	return &state, err
}

// GetQueue возвращает положение очереди в индексах.
func (c *Client) GetQueue(ctx context.Context, address string) (*QueueStateResponse, error) {
	var queue QueueStateResponse
	err := c.get(ctx, "/api/v1/queues/"+url.PathEscape(address), &queue)
	return &queue, err
}

// ListExecutions возвращает историю попыток.
func (c *Client) ListExecutions(ctx context.Context, opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.Queue != "" {
		params.Set("queue", opts.Queue)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var execs []ExecutionResponse
	err := c.list(ctx, "/api/v1/executions", params, &execs)
	return execs, err
}

// GetExecution возвращает запись истории по ID.
func (c *Client) GetExecution(ctx context.Context, id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get(ctx, "/api/v1/executions/"+url.PathEscape(id), &exec)
	return &exec, err
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.do(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
