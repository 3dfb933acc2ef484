package github

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
)

// ArtifactFile is one file stored in an artifact.
type ArtifactFile struct {
	Name string
	Data []byte
}

// ZipFiles packs files into a zip archive.
func ZipFiles(files []ArtifactFile) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("adding %s to archive: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("writing %s to archive: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadZipFile returns the content of the file called name inside archive.
// Directory components of archive entries are ignored when matching.
func ReadZipFile(archive []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name && path.Base(f.Name) != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s in archive: %w", name, ErrNotFound)
}
