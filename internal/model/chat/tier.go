package chat

import (
	"fmt"
	"strings"
)

// Tier selects the model capability level used for a turn.
type Tier string

const (
	TierFlash Tier = "flash"
	TierPro   Tier = "pro"
)

// TierSpec describes a tier for clients. Premium tiers require entitlement.
type TierSpec struct {
	Tier    Tier   `json:"tier"`
	Label   string `json:"label"`
	Premium bool   `json:"premium"`
}

// Tiers is the catalog exposed to the UI, standard first.
var Tiers = []TierSpec{
	{Tier: TierFlash, Label: "Syntra Flash", Premium: false},
	{Tier: TierPro, Label: "Syntra Pro", Premium: true},
}

// ParseTier accepts a tier name case-insensitively.
func ParseTier(raw string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierFlash:
		return TierFlash, nil
	case TierPro:
		return TierPro, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, raw)
	}
}

// Known reports whether t is in the catalog.
func (t Tier) Known() bool {
	for _, info := range Tiers {
		if info.Tier == t {
			return true
		}
	}
	return false
}

// Premium reports whether t requires entitlement.
func (t Tier) Premium() bool {
	for _, info := range Tiers {
		if info.Tier == t {
			return info.Premium
		}
	}
	return false
}
