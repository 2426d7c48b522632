//go:build !darwin && !linux
// +build !darwin,!linux

package nettools

import "syscall"

func idleFD(syscall.RawConn) bool { return true }
