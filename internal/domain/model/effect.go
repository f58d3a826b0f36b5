package model

import "time"

type EffectKind string

const (
	// EffectSetPremium projects the premium entitlement onto the owning user.
	EffectSetPremium EffectKind = "set_premium"
)

// Effect is a side-effect intent emitted by a state transition. Transitions
// stay pure; the caller applies effects in the same transaction as the entity
// write.
type Effect struct {
	Kind    EffectKind
	UserID  string
	Premium bool
	Until   *time.Time
}
