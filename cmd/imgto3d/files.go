package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imgto3d/internal/api"
)

// contentTypeForFile maps a filename extension to the declared upload type.
func contentTypeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return ""
	}
}

// loadLocalFiles reads the given paths into memory as upload candidates.
func loadLocalFiles(paths []string) ([]api.LocalFile, error) {
	files := make([]api.LocalFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		name := filepath.Base(p)
		files = append(files, api.LocalFile{
			Name:        name,
			Size:        int64(len(data)),
			ContentType: contentTypeForFile(name),
			Data:        data,
		})
	}
	return files, nil
}

// imagePathsInDir lists image files directly inside dir, sorted by name so
// grouping stays deterministic.
func imagePathsInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if contentTypeForFile(e.Name()) == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
