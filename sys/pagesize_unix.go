//go:build unix

package sys

import "golang.org/x/sys/unix"

// PageSize returns the memory page size of the running host.
func PageSize() int {
	return unix.Getpagesize()
}
