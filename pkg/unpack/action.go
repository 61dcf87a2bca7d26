package unpack

import (
	"context"
	"log/slog"

	"github.com/go-courier/logr"

	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/repo"
)

// Action is the CLI-facing unpack: resolves a tag or artifact digest,
// unpacks it, and optionally names the result.
type Action struct {
	Unpacker

	// Tag or artifact digest to unpack
	Artifact string `flag:""`
	// Tag to bind to the unpacked artifact
	Tag string `flag:",omitempty"`
}

func (a *Action) Run(ctx context.Context) error {
	r := repo.FromContext(ctx)

	ref := content.TagOrDigest(a.Artifact)

	id, err := ref.Digest()
	if err != nil {
		tag, _ := ref.Tag()
		id, err = r.Tags().Get(ctx, tag)
		if err != nil {
			return err
		}
	}

	unpackedID, _, err := a.Unpack(ctx, r, id)
	if err != nil {
		return err
	}

	if a.Tag != "" {
		if err := r.Tags().Tag(ctx, a.Tag, unpackedID); err != nil {
			return err
		}
		logr.FromContext(ctx).WithValues(
			slog.String("tag", a.Tag),
			slog.String("artifact", unpackedID.String()),
		).Info("tagged")
	}

	return nil
}
