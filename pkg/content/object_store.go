package content

import (
	"context"
	"io"
	"iter"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/opencontainers/go-digest"
)

// ObjectStore is the content-addressed half of a repository. An object
// becomes visible under its digest only after the full stream has been
// verified against that digest.
type ObjectStore interface {
	Ingester
	Provider
	Remover
}

type Provider interface {
	Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error)
	Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error)
}

type Ingester interface {
	Writer(ctx context.Context) (ObjectWriter, error)
}

type Remover interface {
	Remove(ctx context.Context, dgst digest.Digest) error
}

// DigestIterable enumerates live objects, for garbage collection passes.
type DigestIterable interface {
	Digests(ctx context.Context) iter.Seq2[digest.Digest, error]
}

type ObjectWriter interface {
	io.WriteCloser

	ID() string
	Digest(ctx context.Context) digest.Digest
	Size(ctx context.Context) int64

	// Commit verifies the streamed bytes against expected and atomically
	// publishes the object under its content address. On mismatch nothing
	// is published and the staged data is discarded.
	Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error)
	Cancel(ctx context.Context) error
}
