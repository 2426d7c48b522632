//go:build darwin || linux
// +build darwin linux

package nettools

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// idleFD polls the descriptor with a zero timeout. POLLIN on an idle
// client connection means either unsolicited bytes or EOF, both of which
// disqualify it from reuse.
func idleFD(rc syscall.RawConn) (idle bool) {
	idle = true
	rc.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, 0)
		if err != nil {
			return // spurious EINTR etc., let the write find out
		}
		if n > 0 && pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			idle = false
		}
	})
	return
}
