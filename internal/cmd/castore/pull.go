package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"
	"github.com/octohelm/castore/pkg/pull"
	"github.com/octohelm/castore/pkg/repo"
)

func init() {
	c := cli.AddTo(App, &Pull{})
	c.LogFormat = "text"
}

// Pull an image into the repository
type Pull struct {
	cli.C `name:"pull"`
	otel.Otel

	repo.Provider
	pull.Action
}
