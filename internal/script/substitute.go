package script

import (
	"regexp"
	"strconv"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Variables is the substitution table for one rendered contact
type Variables map[string]string

// VariablesFor builds the table from the focused contact, the agent and the campaign
func VariablesFor(contact types.CampaignContact, agentName string, campaign types.Campaign, now time.Time) Variables {
	c := contact.Customer
	vars := Variables{
		"firstName":    c.FirstName,
		"lastName":     c.LastName,
		"fullName":     c.FullName(),
		"email":        c.Email,
		"phone":        c.Phone,
		"company":      c.CompanyName,
		"country":      c.Country,
		"agentName":    agentName,
		"campaignName": campaign.Name,
		"attemptCount": strconv.Itoa(contact.AttemptCount),
		"today":        now.Format("02.01.2006"),
	}
	if c.BirthDate != nil {
		vars["birthDate"] = c.BirthDate.Format("02.01.2006")
	}
	return vars
}

// Substitute replaces known {{key}} tokens. Unknown tokens stay as written.
func Substitute(text string, vars Variables) string {
	if text == "" {
		return text
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		key := tokenPattern.FindStringSubmatch(token)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return token
	})
}

// Render returns a copy of the step with every label and content substituted
func Render(step types.ScriptStep, vars Variables) types.ScriptStep {
	out := step
	out.Title = Substitute(step.Title, vars)
	out.Elements = make([]types.ScriptElement, len(step.Elements))
	for i, el := range step.Elements {
		el.Label = Substitute(el.Label, vars)
		el.Content = Substitute(el.Content, vars)
		if len(el.Options) > 0 {
			opts := make([]types.ElementOption, len(el.Options))
			for j, opt := range el.Options {
				opt.Label = Substitute(opt.Label, vars)
				opts[j] = opt
			}
			el.Options = opts
		}
		out.Elements[i] = el
	}
	return out
}
