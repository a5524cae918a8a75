package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/monti/agentdesk/internal/softphone"
)

type simulateResult struct {
	AgentID string          `json:"agentId"`
	Stats   softphone.Stats `json:"stats"`
}

func newSimulateCmd(app *App) *cobra.Command {
	var (
		server     string
		token      string
		prefix     string
		agents     int
		ringDelay  time.Duration
		talkTime   time.Duration
		answerRate float64
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Connect scripted softphones to a desk server",
		Long: "Each simulated softphone registers on the agent socket, keeps its heartbeat going and " +
			"answers dial commands with scripted call states. Per-agent ids are only honoured when the " +
			"server runs with SKIP_AUTH.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if agents < 1 {
				return writeErr(cmd, fmt.Errorf("--agents must be at least 1"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			phones := make([]*softphone.Phone, agents)
			g, gctx := errgroup.WithContext(ctx)
			for i := range phones {
				agentID := fmt.Sprintf("%s-%03d", prefix, i+1)
				phones[i] = softphone.New(softphone.Config{
					ServerURL:  server,
					Token:      token,
					AgentID:    agentID,
					Name:       agentID,
					RingDelay:  ringDelay,
					TalkTime:   talkTime,
					AnswerRate: answerRate,
					Seed:       int64(i + 1),
				}, app.logger)

				phone := phones[i]
				g.Go(func() error {
					err := phone.Run(gctx)
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return nil
					}
					return err
				})
			}

			app.logger.Info().Int("agents", agents).Str("server", server).Msg("simulation started")
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}

			results := make([]simulateResult, len(phones))
			for i, p := range phones {
				results[i] = simulateResult{AgentID: fmt.Sprintf("%s-%03d", prefix, i+1), Stats: p.Stats()}
			}
			return writeOut(cmd, app, results)
		},
	}

	cmd.Flags().StringVar(&server, "server", envOr("AGENTDESK_URL", "http://localhost:8080"), "Desk server base URL")
	cmd.Flags().StringVar(&token, "token", envOr("AGENTDESK_TOKEN", ""), "Bearer token for the agent socket")
	cmd.Flags().StringVar(&prefix, "prefix", "sim", "Agent id prefix")
	cmd.Flags().IntVar(&agents, "agents", 1, "Number of softphones")
	cmd.Flags().DurationVar(&ringDelay, "ring-delay", 2*time.Second, "Delay between connecting, ringing and answer")
	cmd.Flags().DurationVar(&talkTime, "talk-time", 20*time.Second, "Talk time before the customer hangs up")
	cmd.Flags().Float64Var(&answerRate, "answer-rate", 0.8, "Share of calls the customer answers")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 runs until interrupted)")

	return cmd
}
