package referral

import "errors"

var (
	ErrUnauthorized = errors.New("referral: unauthorized")
	ErrExists       = errors.New("referral: already initialised")
	ErrNotFound     = errors.New("referral: not found")
	ErrNoFunds      = errors.New("referral: no funds")
)
