// Package verify wraps byte streams with incremental digest
// verification. A verified reader never reports a clean EOF unless the
// whole stream hashed to the declared digest: a matching prefix proves
// nothing about the rest.
package verify

import (
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
)

// ReadCloser wraps r so that every read feeds the digest state and the
// final EOF is withheld until the whole stream verified against
// expected. Memory use is constant in the stream size.
func ReadCloser(r io.ReadCloser, expected manifestv1.Descriptor) (io.ReadCloser, error) {
	if err := expected.Digest.Validate(); err != nil {
		return nil, fmt.Errorf("cannot verify against %q: %w", expected.Digest, err)
	}

	return &verifiedReader{
		r:        r,
		expected: expected,
		digester: expected.Digest.Algorithm().Digester(),
	}, nil
}

type verifiedReader struct {
	r        io.ReadCloser
	expected manifestv1.Descriptor
	digester digest.Digester

	read int64
}

func (vr *verifiedReader) Read(p []byte) (int, error) {
	n, err := vr.r.Read(p)

	vr.digester.Hash().Write(p[:n])
	vr.read += int64(n)

	if vr.expected.Size > 0 && vr.read > vr.expected.Size {
		return n, &content.ErrSizeMismatch{
			Actual:   vr.read,
			Expected: vr.expected.Size,
		}
	}

	if err == io.EOF {
		if verr := vr.verify(); verr != nil {
			return n, verr
		}
	}
	return n, err
}

func (vr *verifiedReader) verify() error {
	if vr.expected.Size > 0 && vr.read != vr.expected.Size {
		return &content.ErrSizeMismatch{
			Actual:   vr.read,
			Expected: vr.expected.Size,
		}
	}

	if actual := vr.digester.Digest(); actual != vr.expected.Digest {
		return &content.ErrDigestMismatch{
			Actual:   actual,
			Expected: vr.expected.Digest,
		}
	}
	return nil
}

func (vr *verifiedReader) Close() error {
	return vr.r.Close()
}
