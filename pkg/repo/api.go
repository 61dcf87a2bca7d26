package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-courier/logr"
)

// Provider opens an existing repository and makes it available to the
// actions of the same command.
type Provider struct {
	// Path to the repository
	Root string `flag:",omitempty,volume"`

	repo *Repository
}

func (p *Provider) SetDefaults() {
	if p.Root == "" {
		p.Root = ".tmp/castore"
	}
}

func (p *Provider) Init(ctx context.Context) error {
	if p.repo != nil {
		return nil
	}

	r, err := Open(ctx, p.Root)
	if err != nil {
		return err
	}
	p.repo = r
	return nil
}

func (p *Provider) InjectContext(ctx context.Context) context.Context {
	return InjectContext(ctx, p.repo)
}

func (p *Provider) Repository() *Repository {
	return p.repo
}

// Creator initializes a repository, fixing its integrity mode.
type Creator struct {
	// Path to the repository
	Root string `flag:",omitempty,volume"`
	// Require fs-verity sealing of every stored object
	RequireVerity bool `flag:",omitempty"`
}

func (c *Creator) SetDefaults() {
	if c.Root == "" {
		c.Root = ".tmp/castore"
	}
}

func (c *Creator) Run(ctx context.Context) error {
	r, err := Init(ctx, c.Root, Options{IntegrityRequired: c.RequireVerity})
	if err != nil {
		return err
	}

	logr.FromContext(ctx).Info("initialized %s", r.Root())
	return nil
}

// Lister prints tag names, one per line.
type Lister struct {
	// Only list tags with this prefix
	Prefix string `flag:",omitempty"`
}

func (l *Lister) Run(ctx context.Context) error {
	r := FromContext(ctx)

	tags, err := r.Tags().All(ctx, l.Prefix)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		fmt.Fprintln(os.Stdout, tag)
	}
	return nil
}

// Purger removes staging leftovers older than ExpiresIn.
type Purger struct {
	// Age after which an unfinished upload is considered abandoned
	ExpiresIn time.Duration `flag:",omitempty"`
}

func (p *Purger) SetDefaults() {
	if p.ExpiresIn == 0 {
		p.ExpiresIn = 24 * time.Hour
	}
}

func (p *Purger) Run(ctx context.Context) error {
	return FromContext(ctx).PurgeUploads(ctx, p.ExpiresIn)
}

// Inspector prints the artifact metadata of one tag as JSON. An absent
// tag prints nothing.
type Inspector struct {
	// Tag to inspect
	Tag string `flag:""`
}

func (i *Inspector) Run(ctx context.Context) error {
	r := FromContext(ctx)

	metadata, err := r.ReadArtifactMetadata(ctx, i.Tag)
	if err != nil {
		return err
	}
	if metadata == nil {
		return nil
	}

	return json.NewEncoder(os.Stdout).Encode(metadata)
}
