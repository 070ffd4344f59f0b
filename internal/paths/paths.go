package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirName is the per-project directory holding config and cache
	DirName = ".langsift"
	// HomeEnvVar overrides the user-level langsift directory
	HomeEnvVar = "LANGSIFT_HOME"
	// CacheDBName is the classification cache database file name
	CacheDBName = "cache.db"
)

// GetHome returns the user-level langsift directory ($LANGSIFT_HOME or
// ~/.langsift).
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(userHome, DirName), nil
}

// ProjectDir returns <root>/.langsift
func ProjectDir(root string) string {
	return filepath.Join(root, DirName)
}

// EnsureProjectDir creates <root>/.langsift if needed and returns it
func EnsureProjectDir(root string) (string, error) {
	dir := ProjectDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return dir, nil
}

// GetCacheDBPath returns the cache database path for root. An empty root
// selects the user-level directory.
func GetCacheDBPath(root string) (string, error) {
	if root != "" {
		return filepath.Join(ProjectDir(root), CacheDBName), nil
	}
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, CacheDBName), nil
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where the files exist.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithin checks if a path is inside root
func IsWithin(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// DisplayPath returns path relative to root when it lies inside root, and
// path unchanged otherwise.
func DisplayPath(path string, root string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil || !IsWithin(abs, rootAbs) {
		return filepath.ToSlash(path)
	}
	rel, err := CanonicalizePath(abs, rootAbs)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return rel
}
