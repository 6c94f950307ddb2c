//go:build !darwin && !linux

package input

import "fmt"

// NewInjector is unavailable on this platform.
func NewInjector() (Injector, error) {
	return nil, fmt.Errorf("input injection not supported on this platform")
}
