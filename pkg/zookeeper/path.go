package zookeeper

import (
	"fmt"
	"strings"
)

// ValidatePath verifies that a path is absolute, is not the root and has no empty node names.
func ValidatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%w: path [%s] does not start at the root", ErrInvalidPath, path)
	}

	if path == "/" {
		return fmt.Errorf("%w: path cannot be the root", ErrInvalidPath)
	}

	if strings.HasSuffix(path, "/") {
		return fmt.Errorf("%w: path [%s] should end in a node name, not a '/'", ErrInvalidPath, path)
	}

	// Since we have a leading /, then we expect the first name to be empty.
	for _, name := range SplitPath(path) {
		if name == "" {
			return fmt.Errorf("%w: path [%s] contains an empty node name", ErrInvalidPath, path)
		}
	}
	return nil
}

// SplitPath returns the node names along an absolute path, without the empty root name.
func SplitPath(path string) []string {
	return strings.Split(path, "/")[1:]
}

// JoinPath joins node names into an absolute path.
func JoinPath(names ...string) string {
	return "/" + strings.Join(names, "/")
}

// Parent returns the path of the parent node, or "/" for top level nodes.
func Parent(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}
