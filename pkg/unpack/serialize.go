package unpack

import (
	"context"
	"encoding/json"
	"sort"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
	"github.com/opencontainers/go-digest"
)

// TreeEntry is the serialized form of one directory member.
type TreeEntry struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Mode int64  `json:"mode"`
	UID  int    `json:"uid,omitempty"`
	GID  int    `json:"gid,omitempty"`

	Size   int64         `json:"size,omitempty"`
	Digest digest.Digest `json:"digest,omitempty"`

	Target   string `json:"target,omitempty"`
	DevMajor int64  `json:"devMajor,omitempty"`
	DevMinor int64  `json:"devMinor,omitempty"`
}

// Directory is the stored object for one directory: its members in
// name order, children referenced by the digest of their own Directory
// object.
type Directory struct {
	Entries []TreeEntry `json:"entries"`
}

// CommitTo writes the tree into the store bottom-up and returns the
// descriptor of the root directory object. Identical subtrees collapse
// to the same object.
func (t *Tree) CommitTo(ctx context.Context, ingester content.Ingester) (*manifestv1.Descriptor, error) {
	return commitDir(ctx, ingester, t.root)
}

func commitDir(ctx context.Context, ingester content.Ingester, dir *Entry) (*manifestv1.Descriptor, error) {
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)

	d := &Directory{Entries: make([]TreeEntry, 0, len(names))}

	for _, name := range names {
		child := dir.children[name]

		te := TreeEntry{
			Name: name,
			Kind: child.Kind,
			Mode: child.Mode,
			UID:  child.UID,
			GID:  child.GID,
		}

		switch child.Kind {
		case KindDir:
			childDesc, err := commitDir(ctx, ingester, child)
			if err != nil {
				return nil, err
			}
			te.Digest = childDesc.Digest
			te.Size = childDesc.Size
		case KindFile:
			te.Digest = child.Digest
			te.Size = child.Size
		case KindSymlink, KindHardlink:
			te.Target = child.Target
		case KindChar, KindBlock:
			te.DevMajor = child.DevMajor
			te.DevMinor = child.DevMinor
		}

		d.Entries = append(d.Entries, te)
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	w, err := ingester.Writer(ctx)
	if err != nil {
		return nil, err
	}
	defer w.Cancel(ctx)

	if _, err := w.Write(raw); err != nil {
		return nil, err
	}

	return w.Commit(ctx, manifestv1.Descriptor{
		MediaType: content.MediaTypeTree,
		Digest:    digest.FromBytes(raw),
		Size:      int64(len(raw)),
	})
}
