//go:build !linux

package backend

import "braces.dev/errtrace"

// Default is the backend factory used by queues created without explicit backend.
// On this platform it creates [Runtime] backends.
func Default(entry EntryPoint) (Backend, error) {
	return errtrace.Wrap2(RuntimeFactory(entry))
}
