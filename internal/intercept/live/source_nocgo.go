//go:build !cgo

package live

import (
	"context"
	"io"
	"time"

	"github.com/nao1215/stealthping/internal/intercept"
)

// Source is unavailable without cgo.
type Source struct{}

var _ intercept.Source = (*Source)(nil)

// OpenLive always fails with ErrUnsupported.
func OpenLive(_ string, _ bool, _ time.Duration) (*Source, error) {
	return nil, ErrUnsupported
}

// ReadDatagram reports io.EOF.
func (*Source) ReadDatagram(context.Context) ([]byte, error) {
	return nil, io.EOF
}

// Close does nothing.
func (*Source) Close() error {
	return nil
}
