package repo

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
)

type objectStore struct {
	repo *Repository
}

var _ content.ObjectStore = &objectStore{}
var _ content.DigestIterable = &objectStore{}

func (s *objectStore) workspace() *workspace {
	return s.repo.workspace
}

func (s *objectStore) Info(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error) {
	w := s.workspace()

	info, err := w.Stat(ctx, w.layout.ObjectDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrObjectUnknown{Digest: dgst}
		}
		return nil, err
	}
	return &manifestv1.Descriptor{
		Digest: dgst,
		Size:   info.Size(),
	}, nil
}

func (s *objectStore) Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error) {
	w := s.workspace()

	// absence is a plain NotFound, only present objects get seal-checked
	if _, err := w.Stat(ctx, w.layout.ObjectDataPath(dgst)); err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrObjectUnknown{Digest: dgst}
		}
		return nil, err
	}

	if s.repo.IntegrityRequired() {
		if err := s.repo.checkSeal(ctx, dgst); err != nil {
			return nil, err
		}
	}

	file, err := w.Reader(ctx, w.layout.ObjectDataPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrObjectUnknown{Digest: dgst}
		}
		return nil, err
	}
	return file, nil
}

func (s *objectStore) Remove(ctx context.Context, dgst digest.Digest) error {
	w := s.workspace()
	return w.Delete(ctx, filepath.Dir(w.layout.ObjectDataPath(dgst)))
}

func (s *objectStore) Writer(ctx context.Context) (content.ObjectWriter, error) {
	w := s.workspace()

	id := uuid.New().String()
	startedAt := time.Now().UTC()

	if err := w.PutContent(ctx, w.layout.UploadStartedAtPath(id), []byte(startedAt.Format(time.RFC3339))); err != nil {
		return nil, err
	}

	uploadDataPath := w.layout.UploadDataPath(id)

	fileWriter, err := w.Writer(ctx, uploadDataPath)
	if err != nil {
		return nil, err
	}

	return &objectWriter{
		ctx:       ctx,
		id:        id,
		startedAt: startedAt,
		repo:      s.repo,

		path:       uploadDataPath,
		fileWriter: fileWriter,
		digester:   digest.SHA256.Digester(),
	}, nil
}

func (s *objectStore) Digests(ctx context.Context) iter.Seq2[digest.Digest, error] {
	return func(yield func(digest.Digest, error) bool) {
		w := s.workspace()

		err := w.WalkDir(ctx, w.layout.ObjectsPath(), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if path == "." || d.IsDir() {
				return nil
			}

			dir, base := filepath.Split(path)
			if base != "data" {
				return nil
			}

			parentDir, hex := filepath.Split(strings.TrimSuffix(dir, string(filepath.Separator)))
			alg := filepath.Dir(strings.TrimSuffix(parentDir, string(filepath.Separator)))

			dgst := digest.NewDigestFromHex(alg, hex)
			if err := dgst.Validate(); err != nil {
				return fmt.Errorf("invalid digest of data path %s: %w", path, err)
			}

			if !yield(dgst, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			yield("", err)
		}
	}
}
