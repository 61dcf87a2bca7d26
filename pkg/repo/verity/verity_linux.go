//go:build linux

package verity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const merkleBlockSize = 4096

func enable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	arg := unix.FsverityEnableArg{
		Version:        1,
		Hash_algorithm: unix.FS_VERITY_HASH_ALG_SHA256,
		Block_size:     merkleBlockSize,
	}

	if err := ioctl(f.Fd(), unix.FS_IOC_ENABLE_VERITY, unsafe.Pointer(&arg)); err != nil {
		if errors.Is(err, unix.EEXIST) {
			// already sealed
			return nil
		}
		if errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EOPNOTSUPP) {
			return fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
		return fmt.Errorf("enabling fs-verity on %s: %w", path, err)
	}
	return nil
}

// measurement mirrors struct fsverity_digest with its trailing
// flexible array sized for the largest supported hash.
type measurement struct {
	unix.FsverityDigest
	Raw [64]byte
}

func measure(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	m := &measurement{}
	m.Size = uint16(len(m.Raw))

	if err := ioctl(f.Fd(), unix.FS_IOC_MEASURE_VERITY, unsafe.Pointer(m)); err != nil {
		if errors.Is(err, unix.ENODATA) || errors.Is(err, unix.ENOTTY) || errors.Is(err, unix.EOPNOTSUPP) {
			return "", fmt.Errorf("%w: %s", ErrUnsupported, path)
		}
		return "", fmt.Errorf("measuring fs-verity of %s: %w", path, err)
	}

	if m.Algorithm != unix.FS_VERITY_HASH_ALG_SHA256 {
		return "", fmt.Errorf("unexpected fs-verity algorithm %d of %s", m.Algorithm, path)
	}

	return "sha256:" + hex.EncodeToString(m.Raw[:m.Size]), nil
}

func ioctl(fd uintptr, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
