package main

import (
	"context"
	"os"

	"github.com/innoai-tech/infra/pkg/cli"
	"github.com/octohelm/castore/internal/version"
)

var App = cli.NewApp(
	"castore",
	version.Version(),
	cli.WithImageNamespace("ghcr.io/octohelm"),
)

func main() {
	if err := cli.Execute(context.Background(), App, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
