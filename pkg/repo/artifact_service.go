package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
)

// artifactService stores artifact records as content-addressed objects
// of their own: an artifact id is the digest of its serialized record.
// A link entry keeps committed artifacts enumerable without scanning
// the whole object store.
type artifactService struct {
	repo *Repository
}

var _ content.ArtifactService = &artifactService{}

func (s *artifactService) Commit(ctx context.Context, artifact *content.Artifact) (digest.Digest, error) {
	raw, err := json.Marshal(artifact)
	if err != nil {
		return "", err
	}

	w, err := s.repo.Objects().Writer(ctx)
	if err != nil {
		return "", err
	}
	defer w.Close()

	if _, err := io.Copy(w, bytes.NewReader(raw)); err != nil {
		_ = w.Cancel(ctx)
		return "", err
	}

	desc, err := w.Commit(ctx, manifestv1.Descriptor{
		MediaType: content.MediaTypeArtifact,
	})
	if err != nil {
		return "", err
	}

	ws := s.repo.workspace
	if err := ws.PutContent(ctx, ws.layout.ArtifactLinkPath(desc.Digest), []byte(desc.Digest)); err != nil {
		return "", err
	}

	return desc.Digest, nil
}

func (s *artifactService) Get(ctx context.Context, id digest.Digest) (*content.Artifact, error) {
	r, err := s.repo.Objects().Open(ctx, id)
	if err != nil {
		unknown := &content.ErrObjectUnknown{}
		if errors.As(err, &unknown) {
			return nil, &content.ErrArtifactUnknown{ID: id}
		}
		return nil, err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	artifact := &content.Artifact{}
	if err := json.Unmarshal(raw, artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}
