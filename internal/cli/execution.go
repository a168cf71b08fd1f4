package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для истории попыток.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execution",
		Aliases: []string{"exec"},
		Short:   "Inspect execution history",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListExecutionsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			execs, err := clientFn().ListExecutions(cmd.Context(), opts)
			if err != nil {
				return err
			}

			headers := []string{"ID", "QUEUE", "SLOT", "STATUS", "TASKS", "SIGNATURE"}
			rows := make([][]string, len(execs))
			for i, e := range execs {
				rows[i] = []string{e.ID, e.Queue, strconv.FormatUint(e.Slot, 10), e.Status, taskRange(e), e.Signature}
			}

			outputFn().Print(headers, rows, execs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Queue, "queue", "", "Filter by queue address")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (SUBMITTED, SKIPPED, PAUSED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := clientFn().GetExecution(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if out.IsJSON() {
				out.JSON(e)
				return nil
			}

			out.Fields([][2]string{
				{"ID", e.ID},
				{"Queue", e.Queue},
				{"Slot", strconv.FormatUint(e.Slot, 10)},
				{"Status", e.Status},
				{"Tasks", taskRange(*e)},
				{"Signature", e.Signature},
				{"Error", e.Error},
				{"Created", e.CreatedAt},
			})
			return nil
		},
	}
}

func taskRange(e ExecutionResponse) string {
	if e.TaskCount == 0 {
		return strconv.FormatUint(e.FirstTask, 10)
	}
	return strconv.FormatUint(e.FirstTask, 10) + ".." + strconv.FormatUint(e.FirstTask+uint64(e.TaskCount)-1, 10)
}
