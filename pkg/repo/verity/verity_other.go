//go:build !linux

package verity

import "fmt"

func enable(path string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, path)
}

func measure(path string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrUnsupported, path)
}
