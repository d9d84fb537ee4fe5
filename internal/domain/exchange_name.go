package domain

import "strings"

// ExchangeName is the platform name of an exchange (e.g., "kraken").
type ExchangeName string

func (e ExchangeName) String() string {
	return string(e)
}

// PrivateExchangeName identifies one (exchange, account) pair. KeyName is
// empty when the caller does not care which account is used; with several
// accounts configured on the same platform that is an ambiguity the caller
// must resolve.
type PrivateExchangeName struct {
	Platform ExchangeName `json:"platform"`
	KeyName  string       `json:"key_name,omitempty"`
}

// ParsePrivateExchangeName parses "kraken" or "kraken_user2". The first
// underscore separates the platform from the key name.
func ParsePrivateExchangeName(s string) PrivateExchangeName {
	platform, key, _ := strings.Cut(strings.TrimSpace(s), "_")
	return PrivateExchangeName{
		Platform: ExchangeName(strings.ToLower(platform)),
		KeyName:  key,
	}
}

// HasKeyName reports whether a specific account was requested.
func (p PrivateExchangeName) HasKeyName() bool {
	return p.KeyName != ""
}

// Matches reports whether an account with the given platform and key name
// satisfies this (possibly platform-only) selector.
func (p PrivateExchangeName) Matches(account PrivateExchangeName) bool {
	if p.Platform != account.Platform {
		return false
	}
	return !p.HasKeyName() || p.KeyName == account.KeyName
}

func (p PrivateExchangeName) String() string {
	if !p.HasKeyName() {
		return string(p.Platform)
	}
	return string(p.Platform) + "_" + p.KeyName
}
