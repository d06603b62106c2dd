package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	appName = "dealdesk"
	version = "v0.4.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Deal pipeline and relationship CRM for a venture fund",
		Version: version,
		Long: `dealdesk tracks a venture fund's deal pipeline, contact network and
portfolio from one place: stage transitions, warmth-scored relationships,
access-path suggestions, AI deal scoring and scheduled insight publishing.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (defaults apply when empty)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  "Serve the JSON API, the /events websocket stream and Prometheus metrics",
		RunE:  runServe,
	}
	serveCmd.Flags().AddFlagSet(serveFlags())

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Background job commands",
	}
	scheduleListCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured jobs",
		RunE:  runScheduleList,
	}
	scheduleStartCmd := &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler daemon",
		RunE:  runScheduleStart,
	}
	scheduleRunCmd := &cobra.Command{
		Use:   "run [job]",
		Short: "Execute a single job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduleRun,
	}
	scheduleCmd.AddCommand(scheduleListCmd, scheduleStartCmd, scheduleRunCmd)

	scoreCmd := &cobra.Command{
		Use:   "score [deal-id]",
		Short: "Score a deal memo with the AI evaluator",
		Args:  cobra.ExactArgs(1),
		RunE:  runScore,
	}

	velocityCmd := &cobra.Command{
		Use:   "velocity",
		Short: "Print the pipeline velocity report",
		RunE:  runVelocity,
	}

	pathCmd := &cobra.Command{
		Use:   "path [from] [to]",
		Short: "Suggest a warm access path between two contacts",
		Long:  "Arguments accept a contact ID or a name/organization fragment",
		Args:  cobra.ExactArgs(2),
		RunE:  runPath,
	}

	rootCmd.AddCommand(serveCmd, scheduleCmd, scoreCmd, velocityCmd, pathCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// serveFlags holds the overrides the serve command accepts on top of the
// config file
func serveFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Int("port", 0, "Override the configured HTTP port")
	fs.String("host", "", "Override the configured bind host")
	return fs
}

// scheduleConfigPath resolves the jobs config next to the service config
const scheduleConfigPath = "config/scheduler.yaml"
