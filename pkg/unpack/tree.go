package unpack

import (
	"fmt"
	"path"
	"strings"

	"github.com/opencontainers/go-digest"
)

type Kind string

const (
	KindFile     Kind = "file"
	KindDir      Kind = "dir"
	KindSymlink  Kind = "symlink"
	KindHardlink Kind = "hardlink"
	KindChar     Kind = "char"
	KindBlock    Kind = "block"
	KindFifo     Kind = "fifo"
)

// Entry is one reconstructed filesystem node. Regular files point at a
// stored object; links and device nodes carry their target or device
// numbers instead.
type Entry struct {
	Kind Kind
	Mode int64
	UID  int
	GID  int

	Size   int64
	Digest digest.Digest

	Target   string
	DevMajor int64
	DevMinor int64

	children map[string]*Entry
}

// Tree is the cumulative result of applying layers in order. It lives
// in memory for the duration of one unpack and is serialized exactly
// once, at commit.
type Tree struct {
	root *Entry
}

func NewTree() *Tree {
	return &Tree{root: newDir()}
}

func newDir() *Entry {
	return &Entry{
		Kind:     KindDir,
		Mode:     0o755,
		children: map[string]*Entry{},
	}
}

// splitEntryPath normalizes a layer entry name into path elements,
// rejecting names that would escape the tree root.
func splitEntryPath(name string) ([]string, error) {
	cleaned := strings.TrimPrefix(path.Clean(strings.TrimPrefix(name, "./")), "/")
	if cleaned == "" || cleaned == "." {
		return nil, nil
	}
	elems := strings.Split(cleaned, "/")
	for _, el := range elems {
		if el == ".." {
			return nil, fmt.Errorf("entry %q escapes the root", name)
		}
	}
	return elems, nil
}

// walk descends to the parent directory of elems, creating implicit
// directories on the way. A non-directory in the middle of the path is
// replaced: the later layer wins, including type changes.
func (t *Tree) walk(elems []string, create bool) (*Entry, bool) {
	dir := t.root
	for _, el := range elems {
		child, ok := dir.children[el]
		if !ok || child.Kind != KindDir {
			if !create {
				return nil, false
			}
			child = newDir()
			dir.children[el] = child
		}
		dir = child
	}
	return dir, true
}

// Put binds the last element of elems to e, replacing whatever an
// earlier layer recorded there. A directory over an existing directory
// only refreshes metadata and keeps children.
func (t *Tree) Put(elems []string, e *Entry) {
	if len(elems) == 0 {
		return
	}

	dir, _ := t.walk(elems[:len(elems)-1], true)
	name := elems[len(elems)-1]

	if e.Kind == KindDir {
		if existing, ok := dir.children[name]; ok && existing.Kind == KindDir {
			existing.Mode = e.Mode
			existing.UID = e.UID
			existing.GID = e.GID
			return
		}
		e.children = map[string]*Entry{}
	}

	dir.children[name] = e
}

// Remove drops the name (and any subtree below it); used for
// whiteouts. Removing an absent name is a no-op.
func (t *Tree) Remove(elems []string) {
	if len(elems) == 0 {
		return
	}
	if dir, ok := t.walk(elems[:len(elems)-1], false); ok {
		delete(dir.children, elems[len(elems)-1])
	}
}

// ClearChildren empties the directory at elems; used for opaque
// markers. The directory itself stays.
func (t *Tree) ClearChildren(elems []string) {
	if dir, ok := t.walk(elems, false); ok {
		dir.children = map[string]*Entry{}
	}
}

// Lookup resolves a slash-separated path, nil when absent.
func (t *Tree) Lookup(pathname string) *Entry {
	elems, err := splitEntryPath(pathname)
	if err != nil {
		return nil
	}
	if len(elems) == 0 {
		return t.root
	}

	dir, ok := t.walk(elems[:len(elems)-1], false)
	if !ok {
		return nil
	}
	return dir.children[elems[len(elems)-1]]
}
