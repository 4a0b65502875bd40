package engine

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultExcludes are context entries never sent to the engine.
var DefaultExcludes = []string{".git"}

// WriteContext streams dir from fs as an uncompressed tar build context.
// Entries whose first path element is in exclude are skipped.
func WriteContext(w io.Writer, fs afero.Fs, dir string, exclude []string) error {
	tw := tar.NewWriter(w)

	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if excluded(rel, exclude) {
			if info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		hdr.Name = rel
		if info.IsDir() {
			hdr.Name += "/"
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		f, err := fs.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)

		return err
	})
	if err != nil {
		return fmt.Errorf("archiving build context %s: %w", dir, err)
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("archiving build context %s: %w", dir, err)
	}

	return nil
}

func excluded(rel string, exclude []string) bool {
	first, _, _ := strings.Cut(rel, "/")
	for _, e := range exclude {
		if first == e {
			return true
		}
	}

	return false
}
