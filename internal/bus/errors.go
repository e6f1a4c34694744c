package bus

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a subscription uid does not exist.
	ErrSubscriptionNotFound = errors.New("bus: subscription not found")
)
