package room

import (
	"errors"
	"fmt"
	"strings"
)

// Global is the room every client lands in when no private context is given.
const Global = "global"

// ErrMissingParticipant is returned when a private context lacks one of the
// two participant identities. A private room can never be derived without
// both sides, so the join must be rejected rather than silently falling
// back to a malformed room name.
var ErrMissingParticipant = errors.New("private room requires both participant ids")

// Context carries everything needed to derive a canonical room identifier.
// The same structure rides on join, sendMessage and typing events so the
// server always re-derives the room from the event itself and never trusts
// a raw client-supplied room string.
type Context struct {
	IsPrivate      bool   `json:"isPrivate"`
	SelfID         string `json:"selfId"`
	OtherID        string `json:"otherId"`
	TradeContextID string `json:"tradeContextId,omitempty"`
}

// Resolve computes the canonical room identifier for a context.
//
// Participant identities are sorted before concatenation so both sides of a
// conversation always resolve to the same room regardless of who initiates.
// A trade context embeds the trade identity, isolating a negotiation from
// the plain private channel between the same two users.
func Resolve(c Context) (string, error) {
	if !c.IsPrivate {
		return Global, nil
	}

	self := strings.TrimSpace(c.SelfID)
	other := strings.TrimSpace(c.OtherID)
	if self == "" || other == "" {
		return "", ErrMissingParticipant
	}

	a, b := self, other
	if b < a {
		a, b = b, a
	}

	if trade := strings.TrimSpace(c.TradeContextID); trade != "" {
		return fmt.Sprintf("trade_%s_%s_%s", trade, a, b), nil
	}
	return fmt.Sprintf("private_%s_%s", a, b), nil
}
