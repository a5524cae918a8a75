package crmapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// UserSession is an audit row for the agent session tab
type UserSession struct {
	AgentID string    `json:"userId"`
	Action  string    `json:"action"`
	Status  string    `json:"status,omitempty"`
	At      time.Time `json:"timestamp"`
}

// SearchResult is one hit of the generic search endpoint
type SearchResult struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	CampaignID string `json:"campaignId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
}

func (c *Client) CheckAuth(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, nil)
}

func (c *Client) ListCampaigns(ctx context.Context) ([]types.Campaign, error) {
	var out []types.Campaign
	err := c.do(ctx, http.MethodGet, "/api/campaigns", nil, nil, &out)
	return out, err
}

func (c *Client) GetCampaign(ctx context.Context, id string) (types.Campaign, error) {
	var out types.Campaign
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListCampaignContacts(ctx context.Context, campaignID string) ([]types.CampaignContact, error) {
	var out []types.CampaignContact
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(campaignID)+"/contacts", nil, nil, &out)
	return out, err
}

func (c *Client) UpdateCampaignContact(ctx context.Context, id string, patch types.ContactPatch) (types.CampaignContact, error) {
	var out types.CampaignContact
	err := c.do(ctx, http.MethodPatch, "/api/campaign-contacts/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) ListDispositions(ctx context.Context, campaignID string) ([]types.Disposition, error) {
	var out []types.Disposition
	err := c.do(ctx, http.MethodGet, "/api/campaigns/"+url.PathEscape(campaignID)+"/dispositions", nil, nil, &out)
	return out, err
}

func (c *Client) GetScript(ctx context.Context, scriptID string) (types.Script, error) {
	var out types.Script
	err := c.do(ctx, http.MethodGet, "/api/scripts/"+url.PathEscape(scriptID), nil, nil, &out)
	return out, err
}

func (c *Client) GetCustomer(ctx context.Context, id string) (types.Customer, error) {
	var out types.Customer
	err := c.do(ctx, http.MethodGet, "/api/customers/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ContactHistory(ctx context.Context, customerID string) ([]types.HistoryEntry, error) {
	var out []types.HistoryEntry
	err := c.do(ctx, http.MethodGet, "/api/customers/"+url.PathEscape(customerID)+"/history", nil, nil, &out)
	return out, err
}

func (c *Client) AddHistory(ctx context.Context, entry types.HistoryEntry) error {
	return c.do(ctx, http.MethodPost, "/api/customers/"+url.PathEscape(entry.CustomerID)+"/history", nil, entry, nil)
}

func (c *Client) CreateInvoice(ctx context.Context, inv types.Invoice) (types.Invoice, error) {
	var out types.Invoice
	err := c.do(ctx, http.MethodPost, "/api/invoices", nil, inv, &out)
	return out, err
}

func (c *Client) CreateScheduledInvoice(ctx context.Context, s types.ScheduledInvoice) (types.ScheduledInvoice, error) {
	var out types.ScheduledInvoice
	err := c.do(ctx, http.MethodPost, "/api/scheduled-invoices", nil, s, &out)
	return out, err
}

// GenerateNumber asks a number range for its next formatted number
func (c *Client) GenerateNumber(ctx context.Context, rangeID string) (string, error) {
	var out struct {
		Number string `json:"number"`
	}
	err := c.do(ctx, http.MethodPost, "/api/number-ranges/"+url.PathEscape(rangeID)+"/generate", nil, nil, &out)
	return out.Number, err
}

func (c *Client) ListProducts(ctx context.Context) ([]types.Product, error) {
	var out []types.Product
	err := c.do(ctx, http.MethodGet, "/api/products", nil, nil, &out)
	return out, err
}

func (c *Client) ListBillsets(ctx context.Context, productID string) ([]types.Billset, error) {
	var out []types.Billset
	err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(productID)+"/product-sets", nil, nil, &out)
	return out, err
}

func (c *Client) ListBillingDetails(ctx context.Context) ([]types.BillingDetails, error) {
	var out []types.BillingDetails
	err := c.do(ctx, http.MethodGet, "/api/billing-details", nil, nil, &out)
	return out, err
}

func (c *Client) RecordUserSession(ctx context.Context, s UserSession) error {
	return c.do(ctx, http.MethodPost, "/api/user-sessions", nil, s, nil)
}

func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var out []SearchResult
	err := c.do(ctx, http.MethodGet, "/api/search", url.Values{"q": {query}}, nil, &out)
	return out, err
}
