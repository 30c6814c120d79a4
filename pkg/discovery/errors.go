package discovery

import "errors"

// Package-level sentinel errors for discovery operations.
var (
	// ErrNoAddress is returned when a server has neither an IP nor a host name.
	ErrNoAddress = errors.New("discovery: server has no address")

	// ErrInvalidPort is returned when a server advertises a port out of range.
	ErrInvalidPort = errors.New("discovery: invalid port")
)
