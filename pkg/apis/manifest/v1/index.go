package v1

import (
	"iter"

	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

const DockerMediaTypeManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"

type OciIndex specv1.Index

var _ Manifest = OciIndex{}

func (OciIndex) Type() string {
	return specv1.MediaTypeImageIndex
}

func (i OciIndex) References() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for _, m := range i.Manifests {
			if !yield(m) {
				return
			}
		}
	}
}

type DockerManifestList specv1.Index

var _ Manifest = DockerManifestList{}

func (DockerManifestList) Type() string {
	return DockerMediaTypeManifestList
}

func (i DockerManifestList) References() iter.Seq[Descriptor] {
	return OciIndex(i).References()
}
