package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-courier/logr"
	"github.com/octohelm/unifs/pkg/filesystem/local"
	"github.com/opencontainers/go-digest"

	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/repo/verity"
)

const formatVersion = 1

// marker is the format-version record written once at Init and read
// back at every Open. The integrity mode is fixed here for the life of
// the repository.
type marker struct {
	Version           int  `json:"version"`
	IntegrityRequired bool `json:"integrityRequired"`
}

type Options struct {
	// IntegrityRequired makes fs-verity sealing mandatory: object
	// publication fails unless the seal applies, and reads check the
	// seal before returning data. When false, sealing is attempted and
	// failures degrade to a warning.
	IntegrityRequired bool
}

// Repository owns the on-disk layout: the content-addressed object
// store, the tag index, and artifact records.
type Repository struct {
	root      string
	workspace *workspace
	options   Options
}

// Init creates the layout at root and fixes the integrity mode. The
// target must not already hold a repository.
func Init(ctx context.Context, root string, opts Options) (*Repository, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating repository root %s: %w", root, err)
	}

	w := newWorkspace(local.NewFS(root), defaultLayout)

	if _, err := w.Stat(ctx, w.layout.MarkerPath()); err == nil {
		return nil, &content.ErrRepositoryFormat{
			Reason: fmt.Sprintf("%s already holds a repository", root),
		}
	}

	raw, err := json.Marshal(&marker{
		Version:           formatVersion,
		IntegrityRequired: opts.IntegrityRequired,
	})
	if err != nil {
		return nil, err
	}

	if err := w.PutContent(ctx, w.layout.MarkerPath(), raw); err != nil {
		return nil, err
	}

	return &Repository{root: root, workspace: w, options: opts}, nil
}

// Open reads back an existing layout, failing cleanly on missing or
// incompatible format markers.
func Open(ctx context.Context, root string) (*Repository, error) {
	w := newWorkspace(local.NewFS(root), defaultLayout)

	raw, err := w.GetContent(ctx, w.layout.MarkerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &content.ErrRepositoryFormat{
				Reason: fmt.Sprintf("%s is not a repository", root),
			}
		}
		return nil, fmt.Errorf("opening repository %s: %w", root, err)
	}

	m := &marker{}
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, &content.ErrRepositoryFormat{
			Reason: fmt.Sprintf("unreadable marker of %s: %v", root, err),
		}
	}
	if m.Version != formatVersion {
		return nil, &content.ErrRepositoryFormat{
			Reason: fmt.Sprintf("layout version %d of %s, supported %d", m.Version, root, formatVersion),
		}
	}

	return &Repository{
		root:      root,
		workspace: w,
		options:   Options{IntegrityRequired: m.IntegrityRequired},
	}, nil
}

func (r *Repository) Root() string {
	return r.root
}

func (r *Repository) IntegrityRequired() bool {
	return r.options.IntegrityRequired
}

func (r *Repository) Objects() content.ObjectStore {
	return &objectStore{repo: r}
}

func (r *Repository) Tags() content.TagService {
	return &tagService{workspace: r.workspace}
}

func (r *Repository) Artifacts() content.ArtifactService {
	return &artifactService{repo: r}
}

// ReadArtifactMetadata resolves tag to its artifact record's metadata.
// An absent tag is a normal outcome: nil metadata, nil error.
func (r *Repository) ReadArtifactMetadata(ctx context.Context, tag string) (map[string]any, error) {
	id, err := r.Tags().Get(ctx, tag)
	if err != nil {
		unknown := &content.ErrTagUnknown{}
		if errors.As(err, &unknown) {
			return nil, nil
		}
		return nil, err
	}

	artifact, err := r.Artifacts().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return artifact.Metadata, nil
}

func (r *Repository) localPath(p string) string {
	return filepath.Join(r.root, filepath.FromSlash(p))
}

// sealObject applies the integrity seal to a freshly published object
// and records the measured digest next to it. In best-effort mode a
// failed seal only logs.
func (r *Repository) sealObject(ctx context.Context, dgst digest.Digest) error {
	dataPath := r.workspace.layout.ObjectDataPath(dgst)

	err := verity.Enable(r.localPath(dataPath))
	if err == nil {
		var measured string
		measured, err = verity.Measure(r.localPath(dataPath))
		if err == nil {
			err = r.workspace.PutContent(ctx, r.workspace.layout.ObjectSealPath(dgst), []byte(measured))
		}
	}

	if err != nil {
		if r.options.IntegrityRequired {
			return &content.ErrSeal{Digest: dgst, Reason: err}
		}
		logr.FromContext(ctx).Warn(fmt.Errorf("object %s left unsealed: %w", dgst, err))
	}

	return nil
}

// checkSeal re-measures a sealed object before a read. Only consulted
// when integrity is required.
func (r *Repository) checkSeal(ctx context.Context, dgst digest.Digest) error {
	recorded, err := r.workspace.GetContent(ctx, r.workspace.layout.ObjectSealPath(dgst))
	if err != nil {
		if os.IsNotExist(err) {
			return &content.ErrSeal{Digest: dgst, Reason: fmt.Errorf("object is not sealed")}
		}
		return err
	}

	measured, err := verity.Measure(r.localPath(r.workspace.layout.ObjectDataPath(dgst)))
	if err != nil {
		return &content.ErrSeal{Digest: dgst, Reason: err}
	}

	if measured != string(recorded) {
		return &content.ErrSeal{
			Digest: dgst,
			Reason: fmt.Errorf("measured %s, recorded %s", measured, string(recorded)),
		}
	}
	return nil
}

