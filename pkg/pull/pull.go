package pull

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/containerd/platforms"
	"github.com/distribution/reference"
	"github.com/go-courier/logr"
	"github.com/google/go-containerregistry/pkg/name"
	v1remote "github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/octohelm/castore/internal/pkg/progress"
	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/repo"
	"github.com/octohelm/castore/pkg/verify"
)

// Puller fetches an image manifest and its referenced blobs, verifies
// every stream against its declared digest, and admits verified blobs
// into the repository. It never tags: a pull produces an artifact, the
// caller decides its name.
type Puller struct {
	RegistryConfig

	// Platform to select out of a multi-platform index
	Platform string `flag:",omitempty"`
	// Re-fetch and re-verify blobs already present in the repository.
	// The default trusts prior admission: a store-resident digest was
	// digest-verified when it was stored.
	ReverifyExisting bool `flag:",omitempty"`
	// Bound on concurrently fetched blobs
	Concurrency int `flag:",omitempty"`
}

func (p *Puller) SetDefaults() {
	if p.Platform == "" {
		p.Platform = platforms.Format(platforms.DefaultSpec())
	}
	if p.Concurrency == 0 {
		p.Concurrency = 3
	}
}

// Pull resolves image, admits its manifest, config, and layers, and
// commits an artifact rooted at the image manifest. Any digest
// mismatch aborts the pull before an artifact exists; blobs admitted
// earlier stay, they were individually verified.
func (p *Puller) Pull(pctx context.Context, r *repo.Repository, image string) (digest.Digest, *content.Artifact, error) {
	named, err := reference.ParseDockerRef(image)
	if err != nil {
		return "", nil, fmt.Errorf("unresolvable reference %q: %w", image, err)
	}

	ctx, l := logr.FromContext(pctx).Start(pctx, "pull",
		slog.String("reference", named.String()),
		slog.String("platform", p.Platform),
	)
	defer l.End()

	ref, err := name.ParseReference(named.String())
	if err != nil {
		return "", nil, fmt.Errorf("unresolvable reference %q: %w", image, err)
	}

	puller, err := v1remote.NewPuller(v1remote.WithAuth(p.Authenticator()))
	if err != nil {
		return "", nil, err
	}

	session := &session{
		puller:  puller,
		repo:    ref.Context(),
		objects: r.Objects(),

		reverifyExisting: p.ReverifyExisting,
		transferred:      progress.New(io.Discard),
	}
	defer session.transferred.Close()

	go func() {
		for n := range session.transferred.Observe(ctx) {
			l.Info("transferred %d bytes", n)
		}
	}()

	metadata := map[string]any{
		"reference": named.String(),
		"platform":  p.Platform,
		"pulledAt":  time.Now().UTC().Format(time.RFC3339),
	}

	root, manifest, err := session.resolveManifest(ctx, ref, p.Platform, metadata)
	if err != nil {
		return "", nil, err
	}

	metadata["manifestDigest"] = root.Digest.String()
	metadata["mediaType"] = root.MediaType

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.Concurrency)

	for desc := range manifest.References() {
		eg.Go(func() error {
			return session.admitBlob(ctx, desc)
		})
	}
	if err := eg.Wait(); err != nil {
		return "", nil, err
	}

	artifact := &content.Artifact{
		Root:     *root,
		Metadata: metadata,
	}

	id, err := r.Artifacts().Commit(ctx, artifact)
	if err != nil {
		return "", nil, err
	}

	l.WithValues(slog.String("artifact", id.String())).Info("pulled")

	return id, artifact, nil
}

type session struct {
	puller  *v1remote.Puller
	repo    name.Repository
	objects content.ObjectStore

	reverifyExisting bool
	transferred      *progress.Writer
}

// resolveManifest fetches and admits the manifest behind ref. An index
// is admitted too, then narrowed to the image manifest matching
// platform.
func (s *session) resolveManifest(ctx context.Context, ref name.Reference, platform string, metadata map[string]any) (*manifestv1.Descriptor, manifestv1.Manifest, error) {
	desc, raw, payload, err := s.fetchManifest(ctx, ref)
	if err != nil {
		return nil, nil, err
	}

	switch m := payload.Manifest.(type) {
	case *manifestv1.OciIndex, *manifestv1.DockerManifestList:
		if _, err := s.admitBytes(ctx, raw, *desc); err != nil {
			return nil, nil, err
		}
		metadata["indexDigest"] = desc.Digest.String()

		matched, err := matchPlatform(m, platform)
		if err != nil {
			return nil, nil, err
		}

		childRef := s.repo.Digest(matched.Digest.String())
		childDesc, childRaw, childPayload, err := s.fetchManifest(ctx, childRef)
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.admitBytes(ctx, childRaw, *childDesc); err != nil {
			return nil, nil, err
		}
		return childDesc, childPayload.Manifest, nil
	default:
		if _, err := s.admitBytes(ctx, raw, *desc); err != nil {
			return nil, nil, err
		}
		return desc, payload.Manifest, nil
	}
}

func (s *session) fetchManifest(ctx context.Context, ref name.Reference) (*manifestv1.Descriptor, []byte, *manifestv1.Payload, error) {
	d, err := s.puller.Get(ctx, ref)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetching manifest %s: %w", ref, err)
	}

	desc := &manifestv1.Descriptor{
		MediaType: string(d.MediaType),
		Digest:    digest.NewDigestFromHex(d.Digest.Algorithm, d.Digest.Hex),
		Size:      d.Size,
	}

	payload := &manifestv1.Payload{}
	if err := payload.UnmarshalJSON(d.Manifest); err != nil {
		return nil, nil, nil, fmt.Errorf("parsing manifest %s: %w", ref, err)
	}

	return desc, d.Manifest, payload, nil
}

// admitBytes verifies and stores an in-memory blob (manifests are
// small; everything else streams through admitBlob).
func (s *session) admitBytes(ctx context.Context, raw []byte, expected manifestv1.Descriptor) (*manifestv1.Descriptor, error) {
	w, err := s.objects.Writer(ctx)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	if _, err := w.Write(raw); err != nil {
		_ = w.Cancel(ctx)
		return nil, err
	}

	return w.Commit(ctx, expected)
}

// admitBlob streams one referenced blob through the verifier into the
// object store: fetch, verify, and store are a single pass.
func (s *session) admitBlob(pctx context.Context, desc manifestv1.Descriptor) error {
	ctx, l := logr.FromContext(pctx).Start(pctx, "admit",
		slog.String("digest", desc.Digest.String()),
		slog.Int64("size", desc.Size),
	)
	defer l.End()

	if !s.reverifyExisting {
		if _, err := s.objects.Info(ctx, desc.Digest); err == nil {
			l.Info("already present, skipped")
			return nil
		}
	}

	layer, err := s.puller.Layer(ctx, s.repo.Digest(desc.Digest.String()))
	if err != nil {
		return fmt.Errorf("fetching blob %s: %w", desc.Digest, err)
	}

	rc, err := layer.Compressed()
	if err != nil {
		return fmt.Errorf("fetching blob %s: %w", desc.Digest, err)
	}

	vr, err := verify.ReadCloser(rc, desc)
	if err != nil {
		_ = rc.Close()
		return err
	}
	defer vr.Close()

	w, err := s.objects.Writer(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := io.Copy(w, io.TeeReader(vr, s.transferred)); err != nil {
		_ = w.Cancel(ctx)
		return err
	}

	if _, err := w.Commit(ctx, desc); err != nil {
		return err
	}

	l.Info("admitted")
	return nil
}

func matchPlatform(m manifestv1.Manifest, platform string) (*manifestv1.Descriptor, error) {
	p, err := platforms.Parse(platform)
	if err != nil {
		return nil, fmt.Errorf("invalid platform %q: %w", platform, err)
	}
	matcher := platforms.NewMatcher(p)

	for d := range m.References() {
		if d.Platform == nil {
			continue
		}
		if matcher.Match(*d.Platform) {
			return &d, nil
		}
	}

	return nil, fmt.Errorf("no manifest of %s found in index", platforms.Format(p))
}
