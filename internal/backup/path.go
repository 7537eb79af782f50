package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathRejected is returned when a caller-supplied backup path is unsafe.
var ErrPathRejected = errors.New("backup path rejected")

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// "/home/user/.ecosim/backups/b.json.gz" becomes ".../backups/b.json.gz".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ResolvePath checks that path names a .json or .json.gz file inside one of
// allowedDirs, following symlinks on the existing part of the path, and
// returns the resolved absolute path.
func ResolvePath(path string, allowedDirs []string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path is empty", ErrPathRejected)
	}
	if len(allowedDirs) == 0 {
		return "", fmt.Errorf("%w: no allowed directories configured", ErrPathRejected)
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: path contains null byte", ErrPathRejected)
	}
	if !strings.HasSuffix(path, ".json") && !strings.HasSuffix(path, ".json.gz") {
		return "", fmt.Errorf("%w: %q must end in .json or .json.gz", ErrPathRejected, RedactPath(path))
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve absolute path: %v", ErrPathRejected, err)
	}

	// The file may not exist yet, so only its directory is resolved.
	resolvedDir, err := resolveExisting(filepath.Dir(absPath))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathRejected, err)
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(absPath))

	for _, allowed := range allowedDirs {
		allowedAbs, err := filepath.Abs(filepath.Clean(allowed))
		if err != nil {
			continue
		}
		allowedResolved, err := resolveExisting(allowedAbs)
		if err != nil {
			continue
		}
		if isSubpath(resolved, allowedResolved) {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("%w: %q is outside allowed directories", ErrPathRejected, RedactPath(absPath))
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of dir
// and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}

	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}

	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath reports whether path is base or lies below it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
