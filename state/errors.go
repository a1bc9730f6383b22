package state

import "errors"

var (
	// ErrInvalidTopology is returned when a topology description cannot be built into a network.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrEmptyNetwork is returned when an operation needs at least one node.
	ErrEmptyNetwork = errors.New("network has no nodes")
	ErrUnknownNode  = errors.New("unknown node")
)
