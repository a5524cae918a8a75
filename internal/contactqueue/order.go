package contactqueue

import (
	"sort"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

// Sort fields accepted in campaign settings
const (
	SortFieldPriority     = "priority"
	SortFieldBirthDate    = "birthDate"
	SortFieldLastName     = "lastName"
	SortFieldCreatedAt    = "createdAt"
	SortFieldAttemptCount = "attemptCount"
)

// SortPending reorders pending contacts in place according to campaign settings.
// A sort expression takes precedence over the sort field and orders by score, highest
// first unless the order is asc. If the expression fails for any contact the input
// order is kept.
func SortPending(contacts []types.CampaignContact, settings types.CampaignSettings, engine *Engine, now time.Time, logger zerolog.Logger) {
	if len(contacts) < 2 {
		return
	}

	if settings.SortExpression != "" && engine != nil {
		scores := make(map[string]float64, len(contacts))
		for _, c := range contacts {
			score, err := engine.Score(settings.SortExpression, ContactEnv(c, now))
			if err != nil {
				logger.Warn().Err(err).
					Str("expression", settings.SortExpression).
					Str("contact_id", c.ID).
					Msg("sort expression failed, keeping queue order")
				return
			}
			scores[c.ID] = score
		}
		asc := settings.SortOrder == types.SortAsc
		sort.SliceStable(contacts, func(i, j int) bool {
			a, b := scores[contacts[i].ID], scores[contacts[j].ID]
			if asc {
				return a < b
			}
			return a > b
		})
		return
	}

	less := fieldLess(settings.SortField, settings.SortOrder == types.SortDesc)
	if less == nil {
		return
	}
	sort.SliceStable(contacts, func(i, j int) bool {
		return less(contacts[i], contacts[j])
	})
}

func fieldLess(field string, desc bool) func(a, b types.CampaignContact) bool {
	var less func(a, b types.CampaignContact) bool
	switch field {
	case SortFieldPriority:
		less = func(a, b types.CampaignContact) bool { return a.Customer.Priority < b.Customer.Priority }
	case SortFieldAttemptCount:
		less = func(a, b types.CampaignContact) bool { return a.AttemptCount < b.AttemptCount }
	case SortFieldLastName:
		less = func(a, b types.CampaignContact) bool {
			return strings.ToLower(a.Customer.LastName) < strings.ToLower(b.Customer.LastName)
		}
	case SortFieldCreatedAt:
		less = func(a, b types.CampaignContact) bool { return a.Customer.CreatedAt.Before(b.Customer.CreatedAt) }
	case SortFieldBirthDate:
		// contacts without a birth date stay last in both directions
		return func(a, b types.CampaignContact) bool {
			x, y := a.Customer.BirthDate, b.Customer.BirthDate
			switch {
			case x == nil:
				return false
			case y == nil:
				return true
			case desc:
				return y.Before(*x)
			}
			return x.Before(*y)
		}
	default:
		return nil
	}

	if desc {
		return func(a, b types.CampaignContact) bool { return less(b, a) }
	}
	return less
}
