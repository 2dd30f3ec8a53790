package triage

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	f "github.com/gentoo/pr-assign/pkg/functional"
)

// CategoriesFile lists the valid top-level categories of the tree
const CategoriesFile = "profiles/categories"

// TreeReader reads files from the reference repository by slash-separated path
type TreeReader interface {
	ReadFile(path string) ([]byte, error)
}

// DirTree reads the reference repository from a checked out directory
type DirTree string

func (d DirTree) ReadFile(path string) ([]byte, error) {
	path = strings.TrimPrefix(path, "/")
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(path)))
}

// ReadCategories loads the category list from the tree
func ReadCategories(tree TreeReader) (f.Set[string], error) {
	data, err := tree.ReadFile(CategoriesFile)
	if err != nil {
		return nil, err
	}
	return ParseCategories(data), nil
}

// ParseCategories parses a newline-delimited category list, skipping blank lines
func ParseCategories(data []byte) f.Set[string] {
	categories := f.NewSet[string]()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			categories.Add(line)
		}
	}
	return categories
}
