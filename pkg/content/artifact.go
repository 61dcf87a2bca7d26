package content

import (
	"context"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/opencontainers/go-digest"
)

const (
	// MediaTypeArtifact is the media type of committed artifact records.
	MediaTypeArtifact = "application/vnd.castore.artifact.v1+json"
	// MediaTypeTree is the media type of serialized directory objects.
	MediaTypeTree = "application/vnd.castore.tree.v1+json"
)

// Artifact is the immutable result of a pull or an unpack: one root
// descriptor plus structured metadata. Its identifier is the digest of
// its own serialized record.
type Artifact struct {
	Root     manifestv1.Descriptor `json:"root"`
	Metadata map[string]any        `json:"metadata,omitempty"`
}

func (Artifact) ContentType() string {
	return MediaTypeArtifact
}

type ArtifactService interface {
	Commit(ctx context.Context, artifact *Artifact) (digest.Digest, error)
	Get(ctx context.Context, id digest.Digest) (*Artifact, error)
}
