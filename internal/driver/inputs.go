package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInput is one AST document handed to the checker.
type FileInput struct {
	Path string
	Data []byte
}

var documentExts = map[string]bool{
	".yaml":    true,
	".yml":     true,
	".msgpack": true,
	".mpk":     true,
	".lmp":     true,
}

// IsDocument reports whether path has an extension the checker reads.
func IsDocument(path string) bool {
	return documentExts[strings.ToLower(filepath.Ext(path))]
}

// listDocuments возвращает отсортированный список всех документов в директории
func listDocuments(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsDocument(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// CollectInputs reads every named file and every document below every named
// directory. Read failures are joined; inputs that did load are still
// returned.
func CollectInputs(paths []string) ([]FileInput, error) {
	var (
		inputs []FileInput
		errs   []error
	)
	seen := make(map[string]bool)
	add := func(path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		// #nosec G304 -- paths come from the command line
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", path, err))
			return
		}
		inputs = append(inputs, FileInput{Path: path, Data: data})
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		files, err := listDocuments(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", p, err))
			continue
		}
		if len(files) == 0 {
			errs = append(errs, fmt.Errorf("%s: no AST documents found", p))
		}
		for _, f := range files {
			add(f)
		}
	}
	return inputs, errors.Join(errs...)
}
