package repo_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/repo"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	r, err := repo.Init(ctx, root, repo.Options{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	t.Run("re-init fails", func(t *testing.T) {
		_, err := repo.Init(ctx, root, repo.Options{})
		invalid := &content.ErrRepositoryFormat{}
		testingx.Expect(t, errors.As(err, &invalid), testingx.Be(true))
	})

	t.Run("open reads the marker back", func(t *testing.T) {
		reopened, err := repo.Open(ctx, root)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, reopened.IntegrityRequired(), testingx.Be(false))
	})

	t.Run("open elsewhere fails", func(t *testing.T) {
		_, err := repo.Open(ctx, t.TempDir())
		invalid := &content.ErrRepositoryFormat{}
		testingx.Expect(t, errors.As(err, &invalid), testingx.Be(true))
	})

	t.Run("open incompatible version fails", func(t *testing.T) {
		ahead := t.TempDir()
		err := os.WriteFile(filepath.Join(ahead, "castore.json"), []byte(`{"version":2}`), 0o644)
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = repo.Open(ctx, ahead)
		invalid := &content.ErrRepositoryFormat{}
		testingx.Expect(t, errors.As(err, &invalid), testingx.Be(true))
	})

	str := "12345678"

	t.Run("admit object", func(t *testing.T) {
		w, err := r.Objects().Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = io.Copy(w, bytes.NewBufferString(str))

		d, err := w.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		testingx.Expect(t, d.Digest, testingx.Be(digest.FromString(str)))

		t.Run("info", func(t *testing.T) {
			d, err := r.Objects().Info(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Size, testingx.Be(int64(len(str))))
		})

		t.Run("open", func(t *testing.T) {
			rc, err := r.Objects().Open(ctx, digest.FromString(str))
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer rc.Close()

			data, _ := io.ReadAll(rc)
			testingx.Expect(t, string(data), testingx.Be(str))
		})

		t.Run("admit again deduplicates", func(t *testing.T) {
			w, err := r.Objects().Writer(ctx)
			testingx.Expect(t, err, testingx.Be[error](nil))
			defer w.Close()

			_, _ = io.Copy(w, bytes.NewBufferString(str))

			d, err := w.Commit(ctx, manifestv1.Descriptor{})
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.Digest, testingx.Be(digest.FromString(str)))
		})
	})

	t.Run("digest mismatch admits nothing", func(t *testing.T) {
		w, err := r.Objects().Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = io.Copy(w, bytes.NewBufferString("corrupted"))

		_, err = w.Commit(ctx, manifestv1.Descriptor{
			Digest: digest.FromString("expected something else"),
		})
		mismatch := &content.ErrDigestMismatch{}
		testingx.Expect(t, errors.As(err, &mismatch), testingx.Be(true))

		_, err = r.Objects().Info(ctx, digest.FromString("corrupted"))
		unknown := &content.ErrObjectUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})

	t.Run("size mismatch admits nothing", func(t *testing.T) {
		w, err := r.Objects().Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = io.Copy(w, bytes.NewBufferString("four"))

		_, err = w.Commit(ctx, manifestv1.Descriptor{
			Digest: digest.FromString("four"),
			Size:   1024,
		})
		mismatch := &content.ErrSizeMismatch{}
		testingx.Expect(t, errors.As(err, &mismatch), testingx.Be(true))
	})

	t.Run("digests enumerates admitted objects", func(t *testing.T) {
		found := false
		for d, err := range r.Objects().(content.DigestIterable).Digests(ctx) {
			testingx.Expect(t, err, testingx.Be[error](nil))
			if d == digest.FromString(str) {
				found = true
			}
		}
		testingx.Expect(t, found, testingx.Be(true))
	})

	t.Run("remove", func(t *testing.T) {
		w, _ := r.Objects().Writer(ctx)
		_, _ = io.Copy(w, bytes.NewBufferString("short lived"))
		_, err := w.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))
		_ = w.Close()

		err = r.Objects().Remove(ctx, digest.FromString("short lived"))
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = r.Objects().Info(ctx, digest.FromString("short lived"))
		unknown := &content.ErrObjectUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})
}

func TestIntegrityRequired(t *testing.T) {
	ctx := context.Background()

	r, err := repo.Init(ctx, t.TempDir(), repo.Options{IntegrityRequired: true})
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, r.IntegrityRequired(), testingx.Be(true))

	t.Run("absent object is unknown, not unsealed", func(t *testing.T) {
		_, err := r.Objects().Open(ctx, digest.FromString("never admitted"))
		unknown := &content.ErrObjectUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))

		_, err = r.Artifacts().Get(ctx, digest.FromString("never admitted"))
		unknownArtifact := &content.ErrArtifactUnknown{}
		testingx.Expect(t, errors.As(err, &unknownArtifact), testingx.Be(true))
	})

	w, err := r.Objects().Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	defer w.Close()

	_, _ = io.Copy(w, bytes.NewBufferString("sealed bytes"))

	d, err := w.Commit(ctx, manifestv1.Descriptor{})
	if err != nil {
		// the filesystem under TMPDIR cannot enforce fs-verity: the
		// commit must fail sealed-closed, leaving nothing published
		sealErr := &content.ErrSeal{}
		testingx.Expect(t, errors.As(err, &sealErr), testingx.Be(true))

		_, err = r.Objects().Info(ctx, digest.FromString("sealed bytes"))
		unknown := &content.ErrObjectUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
		return
	}

	rc, err := r.Objects().Open(ctx, d.Digest)
	testingx.Expect(t, err, testingx.Be[error](nil))
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	testingx.Expect(t, string(data), testingx.Be("sealed bytes"))
}

func TestTags(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	r, err := repo.Init(ctx, root, repo.Options{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	first := digest.FromString("artifact-1")
	second := digest.FromString("artifact-2")

	t.Run("unknown tag", func(t *testing.T) {
		_, err := r.Tags().Get(ctx, "missing")
		unknown := &content.ErrTagUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})

	t.Run("tag then resolve", func(t *testing.T) {
		err := r.Tags().Tag(ctx, "latest", first)
		testingx.Expect(t, err, testingx.Be[error](nil))

		id, err := r.Tags().Get(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, id, testingx.Be(first))
	})

	t.Run("retag replaces the binding", func(t *testing.T) {
		err := r.Tags().Tag(ctx, "latest", second)
		testingx.Expect(t, err, testingx.Be[error](nil))

		id, err := r.Tags().Get(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, id, testingx.Be(second))
	})

	t.Run("list with prefix", func(t *testing.T) {
		_ = r.Tags().Tag(ctx, "demo", first)
		_ = r.Tags().Tag(ctx, "demo-next", second)

		all, err := r.Tags().All(ctx, "")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, all, testingx.Equal([]string{"demo", "demo-next", "latest"}))

		some, err := r.Tags().All(ctx, "demo")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, some, testingx.Equal([]string{"demo", "demo-next"}))
	})

	t.Run("concurrent retag leaves exactly one binding", func(t *testing.T) {
		for range 10 {
			eg := errgroup.Group{}
			eg.Go(func() error {
				return r.Tags().Tag(ctx, "raced", first)
			})
			eg.Go(func() error {
				return r.Tags().Tag(ctx, "raced", second)
			})
			err := eg.Wait()
			testingx.Expect(t, err, testingx.Be[error](nil))

			id, err := r.Tags().Get(ctx, "raced")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, id == first || id == second, testingx.Be(true))
		}
	})

	t.Run("tagging leaves no staging leftovers", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(root, "uploads"))
		if err == nil {
			testingx.Expect(t, len(entries), testingx.Be(0))
		}
	})

	t.Run("untag", func(t *testing.T) {
		err := r.Tags().Untag(ctx, "latest")
		testingx.Expect(t, err, testingx.Be[error](nil))

		_, err = r.Tags().Get(ctx, "latest")
		unknown := &content.ErrTagUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})
}

func TestArtifacts(t *testing.T) {
	ctx := context.Background()

	r, err := repo.Init(ctx, t.TempDir(), repo.Options{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	artifact := &content.Artifact{
		Root: manifestv1.Descriptor{
			MediaType: "application/vnd.oci.image.manifest.v1+json",
			Digest:    digest.FromString("manifest"),
			Size:      8,
		},
		Metadata: map[string]any{
			"reference": "docker.io/library/alpine:latest",
		},
	}

	id, err := r.Artifacts().Commit(ctx, artifact)
	testingx.Expect(t, err, testingx.Be[error](nil))

	t.Run("get", func(t *testing.T) {
		got, err := r.Artifacts().Get(ctx, id)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, got.Root.Digest, testingx.Be(artifact.Root.Digest))
		testingx.Expect(t, got.Metadata["reference"], testingx.Be[any]("docker.io/library/alpine:latest"))
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := r.Artifacts().Get(ctx, digest.FromString("never committed"))
		unknown := &content.ErrArtifactUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})

	t.Run("metadata via tag", func(t *testing.T) {
		err := r.Tags().Tag(ctx, "alpine", id)
		testingx.Expect(t, err, testingx.Be[error](nil))

		metadata, err := r.ReadArtifactMetadata(ctx, "alpine")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, metadata["reference"], testingx.Be[any]("docker.io/library/alpine:latest"))
	})

	t.Run("metadata of absent tag", func(t *testing.T) {
		metadata, err := r.ReadArtifactMetadata(ctx, "missing")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, metadata == nil, testingx.Be(true))
	})
}

func TestPurgeUploads(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	r, err := repo.Init(ctx, root, repo.Options{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	w, err := r.Objects().Writer(ctx)
	testingx.Expect(t, err, testingx.Be[error](nil))
	_, _ = io.Copy(w, bytes.NewBufferString("abandoned"))
	_ = w.Close()

	err = r.PurgeUploads(ctx, 0)
	testingx.Expect(t, err, testingx.Be[error](nil))

	entries, err := os.ReadDir(filepath.Join(root, "uploads"))
	if err == nil {
		testingx.Expect(t, len(entries), testingx.Be(0))
	}

	t.Run("store keeps working", func(t *testing.T) {
		w, err := r.Objects().Writer(ctx)
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer w.Close()

		_, _ = io.Copy(w, bytes.NewBufferString("fresh"))

		_, err = w.Commit(ctx, manifestv1.Descriptor{})
		testingx.Expect(t, err, testingx.Be[error](nil))
	})
}
