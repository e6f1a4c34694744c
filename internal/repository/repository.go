// Package repository implements the script-host proxy for the package
// repository: resolving versioned package uids to file URIs served under
// /repository.
package repository

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUID is returned when a package uid is not "<id>@<version>".
var ErrInvalidUID = errors.New("repository: invalid package uid")

// FileURI resolves a versioned package uid and filename to the URI the
// HTTP server exposes the file under.
//
// The uid format is "<id>@<version>", for example "wirehome.logic@1.0.2";
// the resulting URI is /repository/<id>/<version>/<filename>.
func FileURI(uid, filename string) (string, error) {
	id, version, err := ParseUID(uid)
	if err != nil {
		return "", err
	}
	if filename == "" {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidUID)
	}
	return fmt.Sprintf("/repository/%s/%s/%s", id, version, filename), nil
}

// ParseUID splits a package uid into its id and version parts.
func ParseUID(uid string) (id, version string, err error) {
	id, version, ok := strings.Cut(uid, "@")
	if !ok || id == "" || version == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	if strings.Contains(version, "@") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidUID, uid)
	}
	return id, version, nil
}
