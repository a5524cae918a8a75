// Package telephony normalizes dialable numbers and relays call commands to an agent's
// softphone.
package telephony

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
)

// DefaultRegion is used for numbers written without a country prefix
const DefaultRegion = "SK"

// Normalizer formats numbers to E.164
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer; an empty region uses DefaultRegion
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// Region returns the fallback region
func (n *Normalizer) Region() string {
	return n.region
}

// Normalize parses and validates a number, returning it in E.164
func (n *Normalizer) Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", apperr.Precondition("contact has no phone")
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "invalid phone number "+trimmed, err)
	}
	if !phonenumbers.IsValidNumber(number) {
		return "", apperr.Validation("invalid phone number " + trimmed)
	}
	return phonenumbers.Format(number, phonenumbers.E164), nil
}

// NormalizeE164 formats a number to E.164. If parsing fails, it returns the trimmed input.
func (n *Normalizer) NormalizeE164(input string) string {
	out, err := n.Normalize(input)
	if err != nil {
		return strings.TrimSpace(input)
	}
	return out
}
