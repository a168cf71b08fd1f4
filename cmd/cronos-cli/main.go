// Cronos CLI — просмотр состояния cronos-worker через HTTP API.
//
// Использование:
//
//	cronos [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	state      Индексы планировщика
//	queue      Положение очереди в индексах
//	execution  История попыток
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Cronos/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "cronos",
		Short:         "Cronos CLI — inspect a running scheduler worker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8082", "Worker API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewStateCmd(clientFn, outputFn),
		cli.NewQueueCmd(clientFn, outputFn),
		cli.NewExecutionCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		cli.NewOutput(false).Error(err.Error())
		os.Exit(1)
	}
}
