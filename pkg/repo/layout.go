package repo

import (
	"path"

	"github.com/opencontainers/go-digest"
)

// Layout maps repository entities onto the on-disk tree. All paths are
// slash-separated and relative to the repository root.
type Layout string

const defaultLayout = Layout("")

// MarkerPath
// castore.json
func (b Layout) MarkerPath() string {
	return path.Join(string(b), "castore.json")
}

// ObjectsPath
// objects
func (b Layout) ObjectsPath() string {
	return path.Join(string(b), "objects")
}

// ObjectDataPath
// objects/{algorithm}/{hex[:2]}/{hex}/data
func (b Layout) ObjectDataPath(dgst digest.Digest) string {
	return path.Join(b.ObjectsPath(), dgst.Algorithm().String(), dgst.Hex()[0:2], dgst.Hex(), "data")
}

// ObjectSealPath
// objects/{algorithm}/{hex[:2]}/{hex}/verity
func (b Layout) ObjectSealPath(dgst digest.Digest) string {
	return path.Join(b.ObjectsPath(), dgst.Algorithm().String(), dgst.Hex()[0:2], dgst.Hex(), "verity")
}

// UploadsPath
// uploads
func (b Layout) UploadsPath() string {
	return path.Join(string(b), "uploads")
}

func (b Layout) UploadRootPath(id string) string {
	return path.Join(b.UploadsPath(), id)
}

func (b Layout) UploadDataPath(id string) string {
	return path.Join(b.UploadRootPath(id), "data")
}

func (b Layout) UploadStartedAtPath(id string) string {
	return path.Join(b.UploadRootPath(id), "startedat")
}

// TagsPath
// tags
func (b Layout) TagsPath() string {
	return path.Join(string(b), "tags")
}

func (b Layout) TagPath(tag string) string {
	return path.Join(b.TagsPath(), tag)
}

// TagCurrentLinkPath
// tags/{tag}/current/link
func (b Layout) TagCurrentLinkPath(tag string) string {
	return path.Join(b.TagPath(tag), "current", "link")
}

// TagIndexLinkPath
// tags/{tag}/index/{algorithm}/{hex}/link
func (b Layout) TagIndexLinkPath(tag string, dgst digest.Digest) string {
	return path.Join(b.TagPath(tag), "index", dgst.Algorithm().String(), dgst.Hex(), "link")
}

// ArtifactsPath
// artifacts
func (b Layout) ArtifactsPath() string {
	return path.Join(string(b), "artifacts")
}

// ArtifactLinkPath
// artifacts/{algorithm}/{hex}/link
func (b Layout) ArtifactLinkPath(dgst digest.Digest) string {
	return path.Join(b.ArtifactsPath(), dgst.Algorithm().String(), dgst.Hex(), "link")
}
