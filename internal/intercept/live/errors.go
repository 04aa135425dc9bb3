package live

import (
	"errors"
	"os"
	"strings"
)

// ErrUnsupported is returned by OpenLive in binaries built without cgo.
var ErrUnsupported = errors.New("live interface capture needs libpcap: rebuild with CGO_ENABLED=1")

// isPermissionError recognises libpcap's privilege failures, which are
// reported as plain strings.
func isPermissionError(err error) bool {
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") || strings.Contains(msg, "not permitted")
}
