package syncer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// tempPrefix marks partially written downloads; scans ignore them.
const tempPrefix = ".tiercache-"

type localFile struct {
	name string // object name, slash separated
	path string // absolute path on disk
	size int64
}

// scanLocal lists every regular file below dir, sorted by object name.
// Entries that cannot be read, and names that could not be pulled back, are
// returned as failed results and the walk continues. Only an unreadable root
// is an error.
func scanLocal(dir string) ([]localFile, []taskResult, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	var (
		files  []localFile
		failed []taskResult
	)
	fail := func(p string, err error) {
		name := p
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			name = filepath.ToSlash(rel)
		}
		failed = append(failed, taskResult{name: name, outcome: outcomeFailed, err: err})
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			fail(p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			fail(p, err)
			return nil
		}
		name := filepath.ToSlash(rel)
		if strings.Contains(name, "\\") {
			fail(p, storeerr.New("scan local file", storeerr.KindInvalid, fmt.Errorf("object name %q contains a backslash", name)))
			return nil
		}

		info, err := d.Info()
		if err != nil {
			fail(p, err)
			return nil
		}

		files = append(files, localFile{
			name: name,
			path: p,
			size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	sort.Slice(failed, func(i, j int) bool { return failed[i].name < failed[j].name })
	return files, failed, nil
}

// localPath maps an object name onto a path below root, rejecting names that
// would escape it.
func localPath(root, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", storeerr.New("resolve local path", storeerr.KindInvalid, fmt.Errorf("object name %q", name))
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == ".." {
			return "", storeerr.New("resolve local path", storeerr.KindInvalid, fmt.Errorf("object name %q escapes cache directory", name))
		}
	}
	if path.Clean(name) != name {
		return "", storeerr.New("resolve local path", storeerr.KindInvalid, fmt.Errorf("object name %q is not canonical", name))
	}

	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", storeerr.New("resolve local path", storeerr.KindInvalid, fmt.Errorf("object name %q escapes cache directory", name))
	}
	return target, nil
}

// exists reports whether a regular file is already present at p.
func exists(p string) (bool, error) {
	info, err := os.Stat(p)
	if err == nil {
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("%s exists and is not a regular file", p)
		}
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// writeFileAtomic writes data to a temp file next to p and renames it into
// place, so readers never observe partial content.
func writeFileAtomic(p string, data []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
