package domain

import "errors"

var (
	ErrAuthExpired      = errors.New("authentication expired")
	ErrNetwork          = errors.New("network failure")
	ErrRejected         = errors.New("request rejected by server")
	ErrVoteConflict     = errors.New("vote already recorded")
	ErrInvalidDirection = errors.New("invalid vote direction")
	ErrInvalidPageToken = errors.New("invalid page token")
	ErrKeyNotFound      = errors.New("key not found")
	ErrProfileNotFound  = errors.New("profile not found")
)
