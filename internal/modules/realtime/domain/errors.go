package domain

import "errors"

var (
	// ErrInvalidTopic is returned when a topic id is empty or blank.
	ErrInvalidTopic = errors.New("invalid topic")
	// ErrDeliveryFailure marks a failed write to a single connection.
	ErrDeliveryFailure = errors.New("delivery failure")
	// ErrUnknownConnection is returned when a connection id is not attached to the hub.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrUnknownRelation is returned for relation kinds without a topic template.
	ErrUnknownRelation = errors.New("unknown relation kind")
)
