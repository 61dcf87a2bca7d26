package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"
	"github.com/octohelm/castore/pkg/repo"
	"github.com/octohelm/castore/pkg/unpack"
)

func init() {
	c := cli.AddTo(App, &Unpack{})
	c.LogFormat = "text"
}

// Unpack a pulled image into a content-addressed file tree
type Unpack struct {
	cli.C `name:"unpack"`
	otel.Otel

	repo.Provider
	unpack.Action
}
