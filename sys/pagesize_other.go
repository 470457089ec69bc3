//go:build !unix

package sys

import "os"

// PageSize returns the memory page size of the running host.
func PageSize() int {
	return os.Getpagesize()
}
