package component

import "errors"

// Domain errors for the component package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, component.ErrComponentNotFound) {
//	    // handle not found case
//	}
var (
	// ErrComponentNotFound is returned when a component uid does not exist.
	ErrComponentNotFound = errors.New("component: not found")

	// ErrInvalidUID is returned when a component uid is empty.
	ErrInvalidUID = errors.New("component: invalid uid")

	// ErrInvalidKey is returned when a setting or status uid is empty.
	ErrInvalidKey = errors.New("component: invalid key")
)
