package pull

import (
	"context"
	"log/slog"

	"github.com/go-courier/logr"

	"github.com/octohelm/castore/pkg/repo"
)

// Action is the CLI-facing pull: pulls one image and optionally names
// the resulting artifact.
type Action struct {
	Puller

	// Image reference
	Image string `flag:""`
	// Tag to bind to the pulled artifact
	Tag string `flag:",omitempty"`
}

func (a *Action) Run(ctx context.Context) error {
	r := repo.FromContext(ctx)

	id, _, err := a.Pull(ctx, r, a.Image)
	if err != nil {
		return err
	}

	if a.Tag != "" {
		if err := r.Tags().Tag(ctx, a.Tag, id); err != nil {
			return err
		}
		logr.FromContext(ctx).WithValues(
			slog.String("tag", a.Tag),
			slog.String("artifact", id.String()),
		).Info("tagged")
	}

	return nil
}
