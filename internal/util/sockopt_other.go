//go:build !unix

package util

import "syscall"

// reuseControl is a no-op where golang.org/x/sys/unix is unavailable.
func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}
