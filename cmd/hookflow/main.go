// Hookflow CLI — публикация запусков workflow и просмотр job'ов.
//
// Использование:
//
//	hookflow [--config FILE] [--json] <command> [flags]
//
// Команды:
//
//	enqueue   Поставить запуск workflow в очередь
//	jobs      Просмотр job'ов
//	migrate   Миграции схемы БД
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Hookflow/internal/cli"
	"github.com/shaiso/Hookflow/internal/config"
	"github.com/shaiso/Hookflow/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var configFile string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "hookflow",
		Short:         "Hookflow CLI — workflow execution engine tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, json, toml)")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	config.RegisterFlags(flags)

	backendFn := func() (cli.Backend, error) {
		cfg, err := config.Load(configFile, flags)
		if err != nil {
			return nil, err
		}
		// Логи CLI — в stderr, чтобы не мешать --json
		logger := telemetry.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		return cli.NewConfigBackend(cfg, logger), nil
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewEnqueueCmd(backendFn, outputFn),
		cli.NewJobsCmd(backendFn, outputFn),
		cli.NewMigrateCmd(backendFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
