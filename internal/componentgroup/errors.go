package componentgroup

import "errors"

var (
	// ErrGroupNotFound is returned when a component group uid does not exist.
	ErrGroupNotFound = errors.New("component group: not found")

	// ErrInvalidUID is returned when a group or member uid is empty.
	ErrInvalidUID = errors.New("component group: invalid uid")

	// ErrInvalidKey is returned when a setting uid is empty.
	ErrInvalidKey = errors.New("component group: invalid key")
)
