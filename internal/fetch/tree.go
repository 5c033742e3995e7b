package fetch

import (
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/PentesterFlow/apicoverage/internal/errors"
	"github.com/PentesterFlow/apicoverage/internal/parser"
)

// DefaultSourcePattern matches the client library's Rust sources.
const DefaultSourcePattern = "src/**/*.rs"

// LoadSourceTree reads every file under root matching pattern, in path order.
func LoadSourceTree(root, pattern string) ([]parser.SourceFile, error) {
	return LoadSourceFS(os.DirFS(root), pattern)
}

// LoadSourceFS is LoadSourceTree over an arbitrary file system.
func LoadSourceFS(fsys fs.FS, pattern string) ([]parser.SourceFile, error) {
	if pattern == "" {
		pattern = DefaultSourcePattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.NewConfigError("invalid source pattern "+pattern, nil)
	}

	paths, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.NewCoverageError(errors.NotFound, parser.SourceMacro, "glob", "failed to list sources", err)
	}
	if len(paths) == 0 {
		return nil, errors.NewCoverageError(errors.NotFound, parser.SourceMacro, "glob",
			"no files match "+pattern, nil)
	}
	sort.Strings(paths)

	files := make([]parser.SourceFile, 0, len(paths))
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, errors.NewCoverageError(errors.NotFound, parser.SourceMacro, "read", "failed to read "+p, err)
		}
		files = append(files, parser.SourceFile{Path: p, Content: string(data)})
	}
	return files, nil
}
