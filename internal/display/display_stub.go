//go:build !windows

package display

import "fmt"

// List returns an error on non-Windows platforms.
func List() ([]Display, error) {
	return nil, fmt.Errorf("display enumeration is only supported on Windows")
}
