package workspace

import (
	"errors"
	"strings"
)

var (
	// ErrNotConnected indicates the user has no stored provider accounts.
	ErrNotConnected = errors.New("workspace: no provider accounts connected")
	// ErrAPIDisabled indicates the upstream API is not enabled for the
	// project the tokens belong to.
	ErrAPIDisabled = errors.New("workspace: provider api disabled")
)

// apiDisabled matches the upstream error text Google returns when the
// Calendar or Gmail API has not been enabled in the cloud project.
func apiDisabled(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "has not been used") || strings.Contains(message, "disabled")
}
