// Package pathing translates between api paths, as seen by notebook clients,
// and absolute paths in the backing store.
//
// An api path is relative and slash-separated ("dir/notebook.ipynb"). It is
// served either from the personal root directory or, when its first segment
// is "shared", from the shared directory.
package pathing

import (
	"fmt"
	"path"
	"strings"
)

// SharedSegment is the first api path segment that selects the shared
// directory.
const SharedSegment = "shared"

// Resolver maps api paths onto a personal and a shared root.
type Resolver struct {
	RootDir   string
	SharedDir string
}

func NewResolver(rootDir, sharedDir string) *Resolver {
	return &Resolver{
		RootDir:   cleanRoot(rootDir),
		SharedDir: cleanRoot(sharedDir),
	}
}

// FSPath resolves an api path to its absolute store path.
func (r *Resolver) FSPath(apiPath string) (string, error) {
	return ToFSPath(apiPath, PrefixForAPIPath(apiPath, r.RootDir, r.SharedDir))
}

// APIPath turns an absolute store path back into an api path.
func (r *Resolver) APIPath(fsPath string) string {
	return ToAPIPath(fsPath, PrefixForFSPath(fsPath, r.RootDir, r.SharedDir))
}

// Hidden reports whether any segment of the api path behind fsPath is
// hidden.
func (r *Resolver) Hidden(fsPath string) bool {
	return IsHidden(fsPath, PrefixForFSPath(fsPath, r.RootDir, r.SharedDir))
}

// ToFSPath joins the non-empty segments of apiPath onto root. Segments that
// would climb out of root are rejected with [ErrOutsideRoot].
func ToFSPath(apiPath, root string) (string, error) {
	root = cleanRoot(root)
	parts := []string{root}

	for _, seg := range splitSegments(apiPath) {
		switch seg {
		case ".":
			continue
		case "..":
			return "", fmt.Errorf("(pathing) %w: %s", ErrOutsideRoot, apiPath)
		}
		parts = append(parts, seg)
	}

	return path.Join(parts...), nil
}

// ToAPIPath strips root from fsPath and returns the remaining segments
// joined by slashes, without a leading slash.
func ToAPIPath(fsPath, root string) string {
	root = cleanRoot(root)
	if hasPathPrefix(fsPath, root) {
		fsPath = strings.TrimPrefix(fsPath, root)
	}

	return strings.Join(splitSegments(fsPath), "/")
}

// IsHidden reports whether any segment of fsPath below root starts with a
// dot.
func IsHidden(fsPath, root string) bool {
	for _, seg := range strings.Split(ToAPIPath(fsPath, root), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}

	return false
}

// PrefixForAPIPath selects the root an api path is served from.
func PrefixForAPIPath(apiPath, rootDir, sharedDir string) string {
	segs := splitSegments(apiPath)
	if len(segs) > 0 && segs[0] == SharedSegment {
		return sharedDir
	}

	return rootDir
}

// PrefixForFSPath selects the root an absolute store path belongs to.
func PrefixForFSPath(fsPath, rootDir, sharedDir string) string {
	if hasPathPrefix(fsPath, cleanRoot(sharedDir)) {
		return sharedDir
	}

	return rootDir
}

// Split returns the parent api path and the name of apiPath.
func Split(apiPath string) (string, string) {
	segs := splitSegments(apiPath)
	if len(segs) == 0 {
		return "", ""
	}

	return strings.Join(segs[:len(segs)-1], "/"), segs[len(segs)-1]
}

// Join joins api path segments, dropping empty ones.
func Join(elems ...string) string {
	var segs []string
	for _, e := range elems {
		segs = append(segs, splitSegments(e)...)
	}

	return strings.Join(segs, "/")
}

// Normalize strips surrounding slashes and duplicate separators.
func Normalize(apiPath string) string {
	return strings.Join(splitSegments(apiPath), "/")
}

func splitSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(strings.Trim(p, "/"), "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}

	return segs
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return strings.HasPrefix(p, "/")
	}

	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func cleanRoot(root string) string {
	if root == "" {
		return "/"
	}

	return path.Clean("/" + root)
}
