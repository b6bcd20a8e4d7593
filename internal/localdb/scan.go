package localdb

import (
	"os"
	"path/filepath"
)

// Scan lists the database directories under root: root itself (as ".") and
// each immediate sub-directory holding at least two <code>.txt files.
func Scan(root string) ([]string, error) {
	var dirs []string
	if isDB(root) {
		dirs = append(dirs, ".")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() && isDB(filepath.Join(root, e.Name())) {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

func isDB(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "??.txt"))
	return err == nil && len(matches) >= 2
}
