package git

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GitRefFileReader reads files of the reference tree as they are at a git ref
type GitRefFileReader struct {
	ref      string
	dir      string
	executor gitCommandExecutor
}

// NewGitRefFileReader creates a new GitRefFileReader for reading files from a git ref
func NewGitRefFileReader(ref string, dir string) *GitRefFileReader {
	return &GitRefFileReader{
		ref:      ref,
		dir:      dir,
		executor: newRealGitExecutor(dir),
	}
}

// ReadFile reads a file from the git ref
func (r *GitRefFileReader) ReadFile(path string) ([]byte, error) {
	path = r.normalizePathForGit(path)
	output, err := r.executor.execute("git", "show", fmt.Sprintf("%s:%s", r.ref, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s from ref %s: %w", path, r.ref, err)
	}
	return output, nil
}

// PathExists checks if a file exists in the git ref
func (r *GitRefFileReader) PathExists(path string) bool {
	path = r.normalizePathForGit(path)
	_, err := r.executor.execute("git", "cat-file", "-e", fmt.Sprintf("%s:%s", r.ref, path))
	return err == nil
}

// normalizePathForGit turns path into one relative to the repository root
func (r *GitRefFileReader) normalizePathForGit(path string) string {
	dir := filepath.Clean(r.dir)
	cleaned := filepath.Clean(path)
	if dir != "." && filepath.IsAbs(cleaned) {
		if rel, err := filepath.Rel(dir, cleaned); err == nil && !strings.HasPrefix(rel, "..") {
			cleaned = rel
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(cleaned), "/")
}
