//go:build !darwin && !linux

package capture

import "fmt"

// NewSession is unavailable on this platform.
func NewSession() (Session, error) {
	return nil, fmt.Errorf("screen capture not supported on this platform")
}
