//go:build !windows

package term

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// fdWaiter polls fd for readability.
func fdWaiter(fd int) waitFunc {
	return func(timeout time.Duration) (bool, error) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, err := unix.Poll(fds, int(timeout.Milliseconds()))
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if err != nil {
				return false, err
			}
			return n > 0, nil
		}
	}
}
