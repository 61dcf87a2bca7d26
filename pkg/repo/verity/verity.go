// Package verity seals files with Linux fs-verity. Once enabled, the
// kernel verifies every read against a merkle tree it owns, so
// tampering with a sealed file surfaces as a read error or a changed
// measurement rather than silently corrupt data.
package verity

import "errors"

// ErrUnsupported is returned when the platform or the underlying
// filesystem cannot enforce fs-verity.
var ErrUnsupported = errors.New("fs-verity unsupported")

// Enable seals the file at path. The file must not be open for writing
// anywhere. Enabling an already-sealed file fails with EEXIST, which
// Enable swallows: the seal is already in force.
func Enable(path string) error {
	return enable(path)
}

// Measure returns the fs-verity digest of a sealed file, in the
// "{algorithm}:{hex}" form. Unsealed files fail with ErrUnsupported
// wrapped around the kernel error.
func Measure(path string) (string, error) {
	return measure(path)
}
