package repo

import (
	"github.com/octohelm/castore/pkg/repo/driver"
	"github.com/octohelm/unifs/pkg/filesystem"
)

func newWorkspace(fs filesystem.FileSystem, layout Layout) *workspace {
	return &workspace{
		Driver: driver.FromFileSystem(fs),
		layout: layout,
	}
}

type workspace struct {
	driver.Driver

	layout Layout
}
