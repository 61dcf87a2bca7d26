package repo

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/octohelm/castore/pkg/content"
)

type tagService struct {
	workspace *workspace
}

var _ content.TagService = &tagService{}

func (t *tagService) Get(ctx context.Context, tag string) (digest.Digest, error) {
	data, err := t.workspace.GetContent(ctx, t.workspace.layout.TagCurrentLinkPath(tag))
	if err != nil {
		if os.IsNotExist(err) {
			return "", &content.ErrTagUnknown{Tag: tag}
		}
		return "", err
	}
	return digest.Parse(string(data))
}

// Tag binds tag to artifactID. The current link is staged aside and
// renamed into place, so concurrent writers race whole links: readers
// observe either the old binding or the new one, never an absent or
// truncated link.
func (t *tagService) Tag(ctx context.Context, tag string, artifactID digest.Digest) error {
	if err := artifactID.Validate(); err != nil {
		return err
	}

	// record history
	if err := t.workspace.PutContent(ctx,
		t.workspace.layout.TagIndexLinkPath(tag, artifactID),
		[]byte(artifactID),
	); err != nil {
		return err
	}

	id := uuid.New().String()
	staged := t.workspace.layout.UploadDataPath(id)

	if err := t.workspace.PutContent(ctx, staged, []byte(artifactID)); err != nil {
		return err
	}
	defer func() {
		_ = t.workspace.Delete(ctx, t.workspace.layout.UploadRootPath(id))
	}()

	return t.workspace.Move(ctx, staged, t.workspace.layout.TagCurrentLinkPath(tag))
}

func (t *tagService) Untag(ctx context.Context, tag string) error {
	return t.workspace.Delete(ctx, t.workspace.layout.TagPath(tag))
}

func (t *tagService) All(ctx context.Context, prefix string) ([]string, error) {
	tags := make([]string, 0)

	err := t.workspace.WalkDir(ctx, t.workspace.layout.TagsPath(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), prefix) {
				tags = append(tags, d.Name())
			}
			return fs.SkipDir
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	sort.Strings(tags)
	return tags, nil
}
