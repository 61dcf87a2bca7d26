package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"
	"github.com/octohelm/castore/pkg/repo"
)

func init() {
	c := cli.AddTo(App, &List{})
	c.LogFormat = "text"
}

// List tags
type List struct {
	cli.C `name:"list"`
	otel.Otel

	repo.Provider
	repo.Lister
}
