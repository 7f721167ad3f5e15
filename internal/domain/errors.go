package domain

import "errors"

var (
	ErrInvalidTileCoordinate = errors.New("invalid tile coordinate")
	ErrInvalidCoordinate     = errors.New("invalid coordinate")
	ErrInvalidSession        = errors.New("invalid mission session name")
	ErrNotFound              = errors.New("not found")
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrUpstreamTimeout       = errors.New("upstream timeout")
	ErrIO                    = errors.New("io error")
)
