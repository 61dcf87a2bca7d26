package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"
	"github.com/octohelm/castore/pkg/repo"
)

func init() {
	c := cli.AddTo(App, &Inspect{})
	c.LogFormat = "text"
}

// Print the metadata of a tagged artifact
type Inspect struct {
	cli.C `name:"inspect"`
	otel.Otel

	repo.Provider
	repo.Inspector
}
