package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalDir implements ObjectStorage on a directory, for workstations
// without a bucket.
type LocalDir struct {
	Root string
}

func (d LocalDir) Upload(_ context.Context, key, _ string, r io.Reader, _ int64) (ObjectInfo, error) {
	dest := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return ObjectInfo{}, fmt.Errorf("failed creating directory for %s: %w", dest, err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed writing %s: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed writing %s: %w", dest, err)
	}
	return ObjectInfo{Key: key, Size: n, URL: "file://" + dest}, nil
}

func (d LocalDir) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	err := filepath.WalkDir(d.Root, func(path string, e os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if e.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		results = append(results, ObjectInfo{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

var _ ObjectStorage = LocalDir{}
