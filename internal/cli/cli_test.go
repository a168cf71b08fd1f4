package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"confirmed_slot":42,"clock_samples":[{"slot":43,"unix_timestamp":1000}],
			"pending":[{"exec_at":1010,"queues":["Q1","Q2"]}],"actionable":["Q3"],
			"position":{"is_delegate":true,"current_position":0,"workers":2},"results_dropped":0}}`))
	})
	mux.HandleFunc("GET /api/v1/executions", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.Write([]byte(`{"data":[{"id":"e1","queue":"Q1","slot":42,"status":"SUBMITTED","signature":"sig","first_task":5,"task_count":2}],"total":1}`))
	})
	mux.HandleFunc("GET /api/v1/executions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"execution not found"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &queries
}

func harness(srv *httptest.Server, jsonMode bool) (func() *Client, func() *Output, *bytes.Buffer) {
	var buf bytes.Buffer
	clientFn := func() *Client { return NewClient(srv.URL) }
	outputFn := func() *Output { return &Output{jsonMode: jsonMode, w: &buf, errW: &buf} }
	return clientFn, outputFn, &buf
}

func execute(cmd *cobra.Command, args ...string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	return cmd.Execute()
}

func TestClient_GetState(t *testing.T) {
	srv, _ := newAPI(t)

	state, err := NewClient(srv.URL).GetState(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.ConfirmedSlot)
	assert.Equal(t, uint64(42), *state.ConfirmedSlot)
	require.Len(t, state.Pending, 1)
	assert.Equal(t, []string{"Q1", "Q2"}, state.Pending[0].Queues)
	assert.True(t, state.Position.IsDelegate)
}

func TestClient_ListExecutionsParams(t *testing.T) {
	srv, queries := newAPI(t)

	execs, err := NewClient(srv.URL).ListExecutions(context.Background(), ListExecutionsOpts{Queue: "Q1", Status: "FAILED", Limit: 10})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "limit=10&queue=Q1&status=FAILED", (*queries)[0])
}

func TestClient_APIError(t *testing.T) {
	srv, _ := newAPI(t)

	_, err := NewClient(srv.URL).GetExecution(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND: execution not found", err.Error())
}

func TestStateCmd_Table(t *testing.T) {
	srv, _ := newAPI(t)

	clientFn, outputFn, buf := harness(srv, false)

	require.NoError(t, execute(NewStateCmd(clientFn, outputFn)))
	out := buf.String()
	assert.Contains(t, out, "Confirmed slot:")
	assert.Contains(t, out, "yes (position 0 of 2)")
	assert.Contains(t, out, "EXEC_AT")
	assert.Contains(t, out, "Q1,Q2")
}

func TestExecutionListCmd(t *testing.T) {
	srv, queries := newAPI(t)

	clientFn, outputFn, buf := harness(srv, false)

	require.NoError(t, execute(NewExecutionCmd(clientFn, outputFn), "list", "--status", "SUBMITTED"))
	out := buf.String()
	assert.Equal(t, "status=SUBMITTED", (*queries)[0])

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "5..6")
	assert.Contains(t, lines[2], "sig")
}

func TestExecutionShowCmd_JSON(t *testing.T) {
	srv, _ := newAPI(t)
	clientFn, outputFn, _ := harness(srv, true)

	err := execute(NewExecutionCmd(clientFn, outputFn), "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")
}
