package crmapi

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// CampaignBundle is everything a workspace needs to work a campaign
type CampaignBundle struct {
	Campaign     types.Campaign
	Contacts     []types.CampaignContact
	Dispositions []types.Disposition
	Script       *types.Script
}

// LoadCampaign fetches the campaign, then its contacts, outcomes and script concurrently
func (c *Client) LoadCampaign(ctx context.Context, campaignID string) (CampaignBundle, error) {
	campaign, err := c.GetCampaign(ctx, campaignID)
	if err != nil {
		return CampaignBundle{}, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}
	bundle := CampaignBundle{Campaign: campaign}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		contacts, err := c.ListCampaignContacts(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("load contacts: %w", err)
		}
		bundle.Contacts = contacts
		return nil
	})
	g.Go(func() error {
		dispositions, err := c.ListDispositions(gctx, campaignID)
		if err != nil {
			return fmt.Errorf("load dispositions: %w", err)
		}
		bundle.Dispositions = dispositions
		return nil
	})
	if campaign.ScriptID != "" {
		g.Go(func() error {
			script, err := c.GetScript(gctx, campaign.ScriptID)
			if err != nil {
				return fmt.Errorf("load script: %w", err)
			}
			bundle.Script = &script
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CampaignBundle{}, err
	}
	return bundle, nil
}
