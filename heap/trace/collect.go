package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Collect expands paths into script files. A file is taken as is; a
// directory contributes its non-hidden *.script entries. The result is
// sorted by base name.
func Collect(paths ...string) ([]string, error) {
	var files []string
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
		if !st.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("trace: reading %s: %w", p, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ScriptExt) {
				continue
			}
			files = append(files, filepath.Join(p, name))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoScripts, strings.Join(paths, ", "))
	}

	sort.SliceStable(files, func(i, j int) bool {
		return filepath.Base(files[i]) < filepath.Base(files[j])
	})
	return files, nil
}
