package content

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// TagService is the mutable name index of a repository. Tag writes are
// atomic create-or-replace: a reader never observes a missing or partial
// binding for a name that was tagged before.
type TagService interface {
	Get(ctx context.Context, tag string) (digest.Digest, error)
	Tag(ctx context.Context, tag string, artifactID digest.Digest) error
	Untag(ctx context.Context, tag string) error

	// All lists tags in stable (sorted) order, optionally filtered by
	// prefix. An empty prefix lists everything.
	All(ctx context.Context, prefix string) ([]string, error)
}
