package cli

import (
	"github.com/spf13/cobra"

	"github.com/dennisdiepolder/monti/agentdesk/internal/contactqueue"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// campaignExport is the input of the queue command
type campaignExport struct {
	Campaign types.Campaign          `json:"campaign"`
	Contacts []types.CampaignContact `json:"contacts"`
	Disposed []string                `json:"disposed,omitempty"`
}

type queueRow struct {
	Position     int                 `json:"position"`
	ID           string              `json:"id"`
	Status       types.ContactStatus `json:"status"`
	Name         string              `json:"name"`
	AssignedTo   *string             `json:"assignedTo"`
	AttemptCount int                 `json:"attemptCount"`
}

type queueOutput struct {
	Counts map[string]int `json:"counts"`
	Order  []queueRow     `json:"order"`
}

func newQueueCmd(app *App) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "queue [campaign.json]",
		Short: "Show the delivery order of a campaign's contacts for one agent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}

			var in campaignExport
			if err := readJSON(cmd, path, &in); err != nil {
				return writeErr(cmd, err)
			}
			now, err := app.now()
			if err != nil {
				return writeErr(cmd, err)
			}

			q := contactqueue.NewQueue(userID, contactqueue.NewEngine(), app.logger)
			q.Load(in.Campaign, in.Contacts)
			for _, id := range in.Disposed {
				q.MarkDisposed(id)
			}

			parts := q.Partitions(now)
			out := queueOutput{Counts: parts.Counts(), Order: []queueRow{}}
			for i, c := range parts.Ordered() {
				out.Order = append(out.Order, queueRow{
					Position:     i + 1,
					ID:           c.ID,
					Status:       c.Status,
					Name:         c.Customer.FullName(),
					AssignedTo:   c.AssignedTo,
					AttemptCount: c.AttemptCount,
				})
			}
			return writeOut(cmd, app, out)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Agent the order is computed for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
