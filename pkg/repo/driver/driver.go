package driver

import (
	"context"
	"io"
	"io/fs"

	"github.com/octohelm/unifs/pkg/filesystem"
)

// Driver is the capability surface the repository needs from a
// filesystem: scoped reads and writes, atomic rename-into-place, and
// directory walking. No repository semantics live here.
type Driver interface {
	Stat(ctx context.Context, path string) (filesystem.FileInfo, error)
	WalkDir(ctx context.Context, path string, fn fs.WalkDirFunc) error

	Reader(ctx context.Context, path string) (io.ReadCloser, error)
	Writer(ctx context.Context, path string) (FileWriter, error)

	// Move renames oldPath to newPath, creating parent directories of
	// newPath first. On a local filesystem this is an atomic publish.
	Move(ctx context.Context, oldPath string, newPath string) error

	Delete(ctx context.Context, path string) error

	GetContent(ctx context.Context, path string) ([]byte, error)
	PutContent(ctx context.Context, path string, data []byte) error
}

type FileWriter interface {
	io.WriteCloser

	Size() int64
	Cancel(ctx context.Context) error
	Commit(ctx context.Context) error
}
