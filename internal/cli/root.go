// Package cli implements agentdeskctl, the operator tool for checking billing
// plans, payment QR codes and queue order offline, and for driving simulated
// softphones against a running desk server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// App carries the persistent flags
type App struct {
	PrettyJSON bool
	LogLevel   string
	Now        string

	logger zerolog.Logger
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "agentdeskctl",
		Short:        "Operator tooling for the agent desk",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Preview the invoices a cart would generate
  agentdeskctl plan --issue-date 2026-01-31 cart.json

  # Build payment QR payloads and write the SPD code as PNG
  agentdeskctl qr --iban "SK31 1200 0000 1987 4263 7541" --vs 20260042 --png spd.png

  # Show the delivery order of a campaign export
  agentdeskctl queue --user agent-1 campaign.json

  # Run ten scripted softphones against a dev server
  agentdeskctl simulate --server http://localhost:8080 --agents 10
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(app.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", app.LogLevel)
		}
		app.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
			Level(level).
			With().Timestamp().Str("service", "agentdeskctl").
			Logger()
		return nil
	}

	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&app.Now, "now", "", "Reference time (RFC3339) used instead of the wall clock")

	cmd.AddCommand(newPlanCmd(app))
	cmd.AddCommand(newQRCmd(app))
	cmd.AddCommand(newQueueCmd(app))
	cmd.AddCommand(newSimulateCmd(app))

	return cmd
}

func (app *App) now() (time.Time, error) {
	if app.Now == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, app.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now: %w", err)
	}
	return t, nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// readJSON decodes a file, or stdin when path is "-" or empty
func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
