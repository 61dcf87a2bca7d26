package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"
	"github.com/octohelm/castore/pkg/repo"
)

func init() {
	c := cli.AddTo(App, &Purge{})
	c.LogFormat = "text"
}

// Remove abandoned uploads
type Purge struct {
	cli.C `name:"purge"`
	otel.Otel

	repo.Provider
	repo.Purger
}
