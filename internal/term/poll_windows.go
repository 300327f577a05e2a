//go:build windows

package term

import "time"

// fdWaiter reports input as always ready; reads block on Windows consoles.
func fdWaiter(int) waitFunc {
	return func(time.Duration) (bool, error) { return true, nil }
}
