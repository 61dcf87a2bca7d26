package repo_test

import (
	"context"
	"path/filepath"
	"testing"

	testingx "github.com/octohelm/x/testing"

	"github.com/octohelm/castore/internal/testingutil"
	"github.com/octohelm/castore/pkg/repo"
)

func TestProvider(t *testing.T) {
	root := t.TempDir()

	_, err := repo.Init(context.Background(), root, repo.Options{})
	testingx.Expect(t, err, testingx.Be[error](nil))

	c := &struct {
		repo.Provider
	}{}
	c.Root = root

	ctx := testingutil.NewContext(t, c)

	r := repo.FromContext(ctx)
	testingx.Expect(t, r.Root(), testingx.Be(root))
	testingx.Expect(t, r.IntegrityRequired(), testingx.Be(false))
}

func TestCreator(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	c := &struct {
		repo.Creator
	}{}
	c.Root = root

	_ = testingutil.NewContext(t, c)

	r, err := repo.Open(context.Background(), root)
	testingx.Expect(t, err, testingx.Be[error](nil))
	testingx.Expect(t, r.Root(), testingx.Be(root))
}
