package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewStateCmd создаёт команду просмотра индексов worker'а.
func NewStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show scheduler indexes (pending, actionable, clock samples)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := clientFn().GetState(cmd.Context())
			if err != nil {
				return err
			}

			out := outputFn()
			if out.IsJSON() {
				out.JSON(state)
				return nil
			}

			out.Fields([][2]string{
				{"Confirmed slot", optUint(state.ConfirmedSlot)},
				{"Delegate", delegateString(state.Position)},
				{"Clock samples", strconv.Itoa(len(state.ClockSamples))},
				{"Actionable", strconv.Itoa(len(state.Actionable))},
				{"Results dropped", strconv.FormatUint(state.ResultsDropped, 10)},
			})

			headers := []string{"EXEC_AT", "QUEUES"}
			rows := make([][]string, len(state.Pending))
			for i, b := range state.Pending {
				rows[i] = []string{strconv.FormatInt(b.ExecAt, 10), strings.Join(b.Queues, ",")}
			}
			out.Table(headers, rows)
			return nil
		},
	}
}

// NewQueueCmd создаёт команду просмотра одной очереди.
func NewQueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "queue ADDRESS",
		Short: "Show where a queue is in the scheduler indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := clientFn().GetQueue(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			headers := []string{"ADDRESS", "PENDING", "ACTIONABLE"}
			rows := [][]string{{q.Address, strconv.FormatBool(q.Pending), strconv.FormatBool(q.Actionable)}}
			outputFn().Print(headers, rows, q)
			return nil
		},
	}
}

func optUint(v *uint64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatUint(*v, 10)
}

func delegateString(p *Position) string {
	switch {
	case p == nil:
		return "unknown"
	case p.IsDelegate:
		return "yes (position " + optUint(p.CurrentPosition) + " of " + strconv.Itoa(p.Workers) + ")"
	default:
		return "no"
	}
}
