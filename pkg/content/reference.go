package content

import (
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// TagOrDigest is the tail of an image reference: either a tag name or a
// full digest.
type TagOrDigest string

func (tag TagOrDigest) Digest() (digest.Digest, error) {
	return digest.Parse(string(tag))
}

func (tag TagOrDigest) Tag() (string, error) {
	if _, err := tag.Digest(); err != nil {
		return string(tag), nil
	}
	return "", errors.New("digest not a tag")
}
