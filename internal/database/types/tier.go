package types

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier is the purchased product that produced a grant.
type Tier string

const (
	TierEmailGenerator Tier = "email_generator"
	TierEmulator       Tier = "emulator"
	TierPaperReceipts  Tier = "paper_receipts"
	TierFullPackage    Tier = "full_package"
	TierRevoked        Tier = "revoked"
)

// ParseTier normalizes the tier of an inbound grant.
// Anything that is not a purchasable tier maps to TierEmailGenerator, the generic grant.
// TierRevoked is only ever written by revocation.
func ParseTier(s string) Tier {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierEmailGenerator, TierEmulator, TierPaperReceipts, TierFullPackage:
		return t
	default:
		return TierEmailGenerator
	}
}

// String returns the raw tier value.
func (t Tier) String() string {
	return string(t)
}

// DisplayName returns a human readable name such as "Paper Receipts".
func (t Tier) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
}
