package main

import (
	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/innoai-tech/infra/pkg/otel"
	"github.com/octohelm/castore/pkg/repo"
)

func init() {
	c := cli.AddTo(App, &Create{})
	c.LogFormat = "text"
}

// Initialize a repository
type Create struct {
	cli.C `name:"create"`
	otel.Otel

	repo.Creator
}
