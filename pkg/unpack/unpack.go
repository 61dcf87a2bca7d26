package unpack

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/go-courier/logr"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/repo"
)

const (
	whiteoutPrefix = ".wh."
	opaqueMarker   = ".wh..wh..opq"
)

// Unpacker materializes a pulled image into a content-addressed file
// tree: layers are applied in order into an in-memory tree, file
// contents are admitted as objects, and the tree is committed as
// nested directory objects under a new artifact.
type Unpacker struct{}

// Unpack reads the image manifest behind artifact id, applies its
// layers, and commits an artifact rooted at the resulting tree. The
// source artifact's metadata is carried over and extended with unpack
// statistics.
func (u *Unpacker) Unpack(pctx context.Context, r *repo.Repository, id digest.Digest) (digest.Digest, *content.Artifact, error) {
	ctx, l := logr.FromContext(pctx).Start(pctx, "unpack",
		slog.String("artifact", id.String()),
	)
	defer l.End()

	source, err := r.Artifacts().Get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	manifest, err := u.readManifest(ctx, r.Objects(), source.Root)
	if err != nil {
		return "", nil, err
	}

	tree := NewTree()
	stats := &stats{}

	for _, layer := range manifest.Layers {
		l.WithValues(slog.String("layer", layer.Digest.String())).Info("applying")

		if err := applyLayer(ctx, r.Objects(), tree, layer, stats); err != nil {
			return "", nil, err
		}
	}

	root, err := tree.CommitTo(ctx, r.Objects())
	if err != nil {
		return "", nil, err
	}

	metadata := map[string]any{}
	for k, v := range source.Metadata {
		metadata[k] = v
	}
	metadata["source"] = id.String()
	metadata["unpackedAt"] = time.Now().UTC().Format(time.RFC3339)
	metadata["entries"] = stats.entries
	metadata["directories"] = stats.directories
	metadata["bytes"] = stats.bytes

	artifact := &content.Artifact{
		Root:     *root,
		Metadata: metadata,
	}

	unpackedID, err := r.Artifacts().Commit(ctx, artifact)
	if err != nil {
		return "", nil, err
	}

	l.WithValues(
		slog.String("root", root.Digest.String()),
		slog.Int64("entries", stats.entries),
		slog.Int64("bytes", stats.bytes),
	).Info("unpacked")

	return unpackedID, artifact, nil
}

// readManifest loads the artifact root and narrows it to a single
// image manifest. An index root means the pull was never narrowed,
// which a pulled artifact rules out.
func (u *Unpacker) readManifest(ctx context.Context, objects content.ObjectStore, root manifestv1.Descriptor) (*manifestv1.OciManifest, error) {
	rc, err := objects.Open(ctx, root.Digest)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	payload := &manifestv1.Payload{}
	if err := payload.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", root.Digest, err)
	}

	switch m := payload.Manifest.(type) {
	case *manifestv1.OciManifest:
		return m, nil
	case *manifestv1.DockerManifest:
		return (*manifestv1.OciManifest)(m), nil
	}

	return nil, fmt.Errorf("artifact root %s is not an image manifest", root.Digest)
}

type stats struct {
	entries     int64
	directories int64
	bytes       int64
}

// applyLayer streams one layer out of the object store and folds its
// entries into tree, honoring whiteouts and opaque markers in stream
// order.
func applyLayer(ctx context.Context, objects content.ObjectStore, tree *Tree, layer manifestv1.Descriptor, stats *stats) error {
	rc, err := objects.Open(ctx, layer.Digest)
	if err != nil {
		return err
	}
	defer rc.Close()

	dr, err := decompress(rc, layer.MediaType)
	if err != nil {
		return &content.ErrLayerFormat{Digest: layer.Digest, Reason: err}
	}
	defer dr.Close()

	tr := tar.NewReader(dr)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &content.ErrLayerFormat{Digest: layer.Digest, Reason: err}
		}

		if err := applyEntry(ctx, objects, tree, hdr, tr, stats); err != nil {
			return &content.ErrLayerFormat{Digest: layer.Digest, Reason: err}
		}
	}
}

func applyEntry(ctx context.Context, objects content.ObjectStore, tree *Tree, hdr *tar.Header, r io.Reader, stats *stats) error {
	elems, err := splitEntryPath(hdr.Name)
	if err != nil {
		return err
	}
	if len(elems) == 0 {
		return nil
	}

	base := elems[len(elems)-1]

	if base == opaqueMarker {
		tree.ClearChildren(elems[:len(elems)-1])
		return nil
	}
	if strings.HasPrefix(base, whiteoutPrefix) {
		tree.Remove(append(elems[:len(elems)-1:len(elems)-1], strings.TrimPrefix(base, whiteoutPrefix)))
		return nil
	}

	e := &Entry{
		Mode: hdr.Mode,
		UID:  hdr.Uid,
		GID:  hdr.Gid,
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		e.Kind = KindDir
		stats.directories++
	case tar.TypeReg:
		e.Kind = KindFile
		desc, err := admitFileContent(ctx, objects, r)
		if err != nil {
			return err
		}
		e.Digest = desc.Digest
		e.Size = desc.Size
		stats.entries++
		stats.bytes += desc.Size
	case tar.TypeSymlink:
		e.Kind = KindSymlink
		e.Target = hdr.Linkname
		stats.entries++
	case tar.TypeLink:
		e.Kind = KindHardlink
		e.Target = strings.TrimPrefix(path.Clean("/"+hdr.Linkname), "/")
		stats.entries++
	case tar.TypeChar:
		e.Kind = KindChar
		e.DevMajor = hdr.Devmajor
		e.DevMinor = hdr.Devminor
		stats.entries++
	case tar.TypeBlock:
		e.Kind = KindBlock
		e.DevMajor = hdr.Devmajor
		e.DevMinor = hdr.Devminor
		stats.entries++
	case tar.TypeFifo:
		e.Kind = KindFifo
		stats.entries++
	default:
		// pax headers and anything exotic carry no tree node
		return nil
	}

	tree.Put(elems, e)
	return nil
}

// admitFileContent stores one regular file's bytes as an object. The
// digest is only known after the stream, so the writer commits against
// its own observation.
func admitFileContent(ctx context.Context, objects content.ObjectStore, r io.Reader) (*manifestv1.Descriptor, error) {
	w, err := objects.Writer(ctx)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Cancel(ctx)
		return nil, err
	}

	return w.Commit(ctx, manifestv1.Descriptor{
		Digest: w.Digest(ctx),
		Size:   w.Size(ctx),
	})
}

func decompress(rc io.ReadCloser, mediaType string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(mediaType, "+gzip"), strings.HasSuffix(mediaType, ".tar.gzip"):
		gr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case strings.HasSuffix(mediaType, "+zstd"), strings.HasSuffix(mediaType, ".tar.zstd"):
		zr, err := zstd.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(rc), nil
	}
}
