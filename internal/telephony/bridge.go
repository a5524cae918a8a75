package telephony

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Sender delivers a message to an agent's connected softphone
type Sender interface {
	SendToAgent(agentID string, msg any) error
}

// Bridge turns workspace call actions into softphone commands
type Bridge struct {
	sender     Sender
	normalizer *Normalizer
	logger     zerolog.Logger
}

// NewBridge creates a bridge
func NewBridge(sender Sender, normalizer *Normalizer, logger zerolog.Logger) *Bridge {
	return &Bridge{
		sender:     sender,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "telephony").Logger(),
	}
}

// Dial normalizes the number and asks the softphone to call it. It returns the dialed number.
func (b *Bridge) Dial(agentID, number string) (string, error) {
	e164, err := b.normalizer.Normalize(number)
	if err != nil {
		return "", err
	}
	if err := b.send(agentID, types.CallCommand{Action: types.ActionDial, Number: e164}); err != nil {
		return "", err
	}
	b.logger.Info().Str("agent_id", agentID).Str("number", e164).Msg("Dial requested")
	return e164, nil
}

// Hangup ends the current call
func (b *Bridge) Hangup(agentID string) error {
	return b.send(agentID, types.CallCommand{Action: types.ActionHangup})
}

// Mute toggles the microphone
func (b *Bridge) Mute(agentID string, muted bool) error {
	action := types.ActionUnmute
	if muted {
		action = types.ActionMute
	}
	return b.send(agentID, types.CallCommand{Action: action})
}

// Hold toggles hold
func (b *Bridge) Hold(agentID string, held bool) error {
	action := types.ActionResume
	if held {
		action = types.ActionHold
	}
	return b.send(agentID, types.CallCommand{Action: action})
}

// DTMF sends touch tones; only 0-9, * and # are allowed
func (b *Bridge) DTMF(agentID, digits string) error {
	if digits == "" || strings.Trim(digits, "0123456789*#") != "" {
		return apperr.Validation("invalid dtmf digits")
	}
	return b.send(agentID, types.CallCommand{Action: types.ActionDTMF, Digits: digits})
}

// Volume sets the speaker volume in percent
func (b *Bridge) Volume(agentID string, volume int) error {
	if volume < 0 || volume > 100 {
		return apperr.Validation("volume must be between 0 and 100")
	}
	return b.send(agentID, types.CallCommand{Action: types.ActionVolume, Volume: volume})
}

func (b *Bridge) send(agentID string, cmd types.CallCommand) error {
	cmd.Type = "call_command"
	if err := b.sender.SendToAgent(agentID, cmd); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "softphone is not connected", err)
	}
	return nil
}
