package verify_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/castore/pkg/apis/manifest/v1"
	"github.com/octohelm/castore/pkg/content"
	"github.com/octohelm/castore/pkg/verify"
)

func descriptorOf(data string) manifestv1.Descriptor {
	return manifestv1.Descriptor{
		Digest: digest.FromString(data),
		Size:   int64(len(data)),
	}
}

func TestReadCloser(t *testing.T) {
	data := "some layer bytes"

	t.Run("intact stream reads through", func(t *testing.T) {
		vr, err := verify.ReadCloser(io.NopCloser(bytes.NewBufferString(data)), descriptorOf(data))
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer vr.Close()

		got, err := io.ReadAll(vr)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, string(got), testingx.Be(data))
	})

	t.Run("corrupted stream fails at EOF", func(t *testing.T) {
		vr, err := verify.ReadCloser(io.NopCloser(bytes.NewBufferString("some layer bytez")), descriptorOf(data))
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer vr.Close()

		_, err = io.ReadAll(vr)
		mismatch := &content.ErrDigestMismatch{}
		testingx.Expect(t, errors.As(err, &mismatch), testingx.Be(true))
	})

	t.Run("truncated stream fails at EOF", func(t *testing.T) {
		vr, err := verify.ReadCloser(io.NopCloser(bytes.NewBufferString(data[:4])), descriptorOf(data))
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer vr.Close()

		_, err = io.ReadAll(vr)
		mismatch := &content.ErrSizeMismatch{}
		testingx.Expect(t, errors.As(err, &mismatch), testingx.Be(true))
	})

	t.Run("overlong stream fails before EOF", func(t *testing.T) {
		vr, err := verify.ReadCloser(io.NopCloser(bytes.NewBufferString(data+data)), descriptorOf(data))
		testingx.Expect(t, err, testingx.Be[error](nil))
		defer vr.Close()

		_, err = io.ReadAll(vr)
		mismatch := &content.ErrSizeMismatch{}
		testingx.Expect(t, errors.As(err, &mismatch), testingx.Be(true))
	})

	t.Run("rejects an unverifiable expectation", func(t *testing.T) {
		_, err := verify.ReadCloser(io.NopCloser(bytes.NewBufferString(data)), manifestv1.Descriptor{})
		testingx.Expect(t, err != nil, testingx.Be(true))
	})
}
