package repo

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"time"
)

// PurgeUploads removes staging leftovers of cancelled or crashed
// operations. Published objects are never touched: an upload directory
// only ever holds data that was not yet admitted.
func (r *Repository) PurgeUploads(ctx context.Context, expiresIn time.Duration) error {
	expiredAt := time.Now().Add(-expiresIn)

	for u, err := range r.uploads(ctx) {
		if err != nil {
			return err
		}
		if u.startedAt.Before(expiredAt) {
			if err := r.workspace.Delete(ctx, r.workspace.layout.UploadRootPath(u.id)); err != nil {
				return err
			}
		}
	}

	return nil
}

type upload struct {
	id        string
	startedAt time.Time
}

func (r *Repository) uploads(ctx context.Context) iter.Seq2[*upload, error] {
	return func(yield func(*upload, error) bool) {
		err := r.workspace.WalkDir(ctx, r.workspace.layout.UploadsPath(), func(pathname string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if pathname == "." {
				return nil
			}

			if d.IsDir() {
				u := &upload{id: pathname}

				raw, _ := r.workspace.GetContent(ctx, r.workspace.layout.UploadStartedAtPath(u.id))
				if len(raw) > 0 {
					u.startedAt, _ = time.Parse(time.RFC3339, string(raw))
				}

				if !yield(u, nil) {
					return fs.SkipAll
				}
				return fs.SkipDir
			}

			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			yield(nil, err)
		}
	}
}
