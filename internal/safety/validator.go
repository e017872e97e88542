package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrProtectedPath = errors.New("protected path")
	ErrOutsideRoot   = errors.New("outside sweep root")
	ErrTraversal     = errors.New("path traversal detected")
	ErrSymlinkEscape = errors.New("symlink escape detected")
	ErrRootIsTarget  = errors.New("refusing to delete the sweep root")
)

// systemPaths may never be removed themselves. Directories below them
// (e.g. /usr/local/src/proj) are ordinary sweep territory.
var systemPaths = []string{
	"/",
	"/etc",
	"/bin",
	"/usr",
	"/boot",
	"/lib",
	"/lib64",
	"/sbin",
	"/proc",
	"/sys",
	"/dev",
}

// Validator authorizes every directory removal of a sweep.
// A target must sit strictly below Root, must not be a system path and
// must not be inside any protected path.
type Validator struct {
	Root           string
	ProtectedPaths []string // user-configured, whole subtrees protected
}

// NewValidator creates a validator for one sweep root with optional protected paths
func NewValidator(root string, protected []string) *Validator {
	return &Validator{
		Root:           normalizeRoot(root),
		ProtectedPaths: cleanProtected(protected),
	}
}

// ValidateDeleteTarget returns nil when path may be removed.
// Refusals wrap one of the package errors.
func (v *Validator) ValidateDeleteTarget(path string) error {
	if DetectTraversal(path) {
		return fmt.Errorf("%w: %s", ErrTraversal, path)
	}

	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if IsSystemPath(p) || IsProtectedPath(p, v.ProtectedPaths) {
		return fmt.Errorf("%w: %s", ErrProtectedPath, p)
	}

	if v.Root == "" || !hasPathPrefix(p, v.Root) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	if p == v.Root {
		return fmt.Errorf("%w: %s", ErrRootIsTarget, p)
	}

	escaped, err := DetectSymlinkEscape(p, v.Root)
	if err != nil {
		// Already gone: RemoveAll treats that as success
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if escaped {
		return fmt.Errorf("%w: %s", ErrSymlinkEscape, p)
	}

	return nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	for _, p := range strings.Split(filepath.ToSlash(raw), "/") {
		if p == ".." {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape reports whether the resolved location of cleanAbs leaves root.
// Only the parent is resolved: the target itself is never followed.
func DetectSymlinkEscape(cleanAbs, root string) (bool, error) {
	parent, err := filepath.EvalSymlinks(filepath.Dir(cleanAbs))
	if err != nil {
		return false, err
	}
	resolved := filepath.Join(parent, filepath.Base(cleanAbs))
	return !hasPathPrefix(resolved, root), nil
}

// IsSystemPath reports whether path is one of the system directories
func IsSystemPath(path string) bool {
	p := filepath.Clean(path)
	for _, sys := range systemPaths {
		if p == sys {
			return true
		}
	}
	return false
}

// IsProtectedPath reports whether path is a protected path or lies below one
func IsProtectedPath(path string, protected []string) bool {
	for _, prot := range protected {
		if hasPathPrefix(path, prot) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if path == prefix {
		return true
	}
	if prefix == string(os.PathSeparator) {
		return filepath.IsAbs(path)
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// normalizeRoot resolves root the same way the sweep does before walking,
// so candidate paths built from it compare equal.
func normalizeRoot(root string) string {
	if strings.TrimSpace(root) == "" {
		return ""
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs)
}

// cleanProtected drops blank entries and cleans the rest
func cleanProtected(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}
