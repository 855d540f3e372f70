//go:build unix

package registry

import (
	"errors"

	"golang.org/x/sys/unix"
)

func killPID(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := unix.Kill(pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
