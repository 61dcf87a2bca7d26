package content

import (
	"testing"

	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
)

func TestTagOrDigest(t *testing.T) {
	t.Run("digest form", func(t *testing.T) {
		ref := TagOrDigest(digest.FromString("x").String())

		d, err := ref.Digest()
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, d, testingx.Be(digest.FromString("x")))

		_, err = ref.Tag()
		testingx.Expect(t, err != nil, testingx.Be(true))
	})

	t.Run("tag form", func(t *testing.T) {
		ref := TagOrDigest("latest")

		tag, err := ref.Tag()
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, tag, testingx.Be("latest"))

		_, err = ref.Digest()
		testingx.Expect(t, err != nil, testingx.Be(true))
	})
}
