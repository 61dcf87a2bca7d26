package repo

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/repo/driver"
)

type objectWriter struct {
	ctx context.Context

	id        string
	startedAt time.Time

	digester   digest.Digester
	fileWriter driver.FileWriter
	path       string

	written int64

	repo *Repository

	closeOnce sync.Once
	err       error
}

var _ content.ObjectWriter = &objectWriter{}

func (ow *objectWriter) ID() string {
	return ow.id
}

func (ow *objectWriter) Write(p []byte) (n int, err error) {
	n, err = ow.fileWriter.Write(p)
	ow.digester.Hash().Write(p[:n])
	ow.written += int64(n)
	return n, err
}

func (ow *objectWriter) Digest(ctx context.Context) digest.Digest {
	return ow.digester.Digest()
}

func (ow *objectWriter) Size(ctx context.Context) int64 {
	return ow.fileWriter.Size()
}

func (ow *objectWriter) Cancel(ctx context.Context) error {
	if err := ow.fileWriter.Cancel(ctx); err != nil {
		return err
	}
	return ow.cleanUpload(ctx)
}

func (ow *objectWriter) Close() error {
	ow.closeOnce.Do(func() {
		ow.err = ow.fileWriter.Close()
	})
	return ow.err
}

// Commit is the only path by which an object becomes reachable under
// its content address. The staged bytes are published iff the computed
// digest matches the expectation; anything else leaves the address
// untouched.
func (ow *objectWriter) Commit(ctx context.Context, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	if err := ow.fileWriter.Commit(ctx); err != nil {
		return nil, err
	}

	if err := ow.Close(); err != nil {
		return nil, err
	}

	defer func() {
		_ = ow.cleanUpload(ctx)
	}()

	desc := &manifestv1.Descriptor{
		Size:      ow.Size(ctx),
		Digest:    ow.Digest(ctx),
		MediaType: expected.MediaType,
	}

	if expected.Size > 0 && expected.Size != desc.Size {
		return nil, &content.ErrSizeMismatch{
			Actual:   desc.Size,
			Expected: expected.Size,
		}
	}

	if expected.Digest != "" && expected.Digest != desc.Digest {
		return nil, &content.ErrDigestMismatch{
			Actual:   desc.Digest,
			Expected: expected.Digest,
		}
	}

	sealed, err := ow.publish(ctx, desc)
	if err != nil {
		return nil, err
	}

	if !sealed {
		if err := ow.repo.sealObject(ctx, desc.Digest); err != nil {
			// a required seal that cannot apply voids the publication
			_ = ow.repo.Objects().Remove(ctx, desc.Digest)
			return nil, err
		}
	}

	return desc, nil
}

// publish moves the staged data under its content address. Reports
// whether the object was already present (and therefore already went
// through sealing).
func (ow *objectWriter) publish(ctx context.Context, desc *manifestv1.Descriptor) (bool, error) {
	w := ow.repo.workspace

	dataPath := w.layout.ObjectDataPath(desc.Digest)

	if _, err := w.Stat(ctx, dataPath); err == nil {
		// deduplicated: same digest, same object
		return true, nil
	}

	return false, w.Move(ctx, ow.path, dataPath)
}

func (ow *objectWriter) cleanUpload(ctx context.Context) error {
	return ow.repo.workspace.Delete(ctx, path.Dir(ow.path))
}
