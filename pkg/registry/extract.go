package registry

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ompkg/pkg/pkgerr"
)

// maxExtractBytes is the upper bound on the total size extracted from one
// archive (1 GB).
const maxExtractBytes = 1 << 30

var errTooLarge = errors.New("archive exceeds extraction size limit")

// Extract unpacks the archive at archivePath into destDir and classifies the
// files it contained. Intermediate directories are created as needed.
func Extract(archivePath, destDir string) (*Files, error) {
	switch FormatOf(archivePath) {
	case FormatZip:
		return extractZip(archivePath, destDir)
	case FormatTarGz:
		return extractTarGz(archivePath, destDir)
	case FormatRar:
		return nil, pkgerr.Extraction(archivePath, errors.New("rar archives are not supported"))
	}
	return nil, pkgerr.Extraction(archivePath, errors.New("unsupported archive format"))
}

func extractZip(archivePath, destDir string) (*Files, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, pkgerr.Extraction(archivePath, err)
	}
	defer func() { _ = zr.Close() }()

	files := &Files{}
	budget := int64(maxExtractBytes)

	for _, zf := range zr.File {
		name := normalizeEntryName(zf.Name)
		if name == "" {
			continue
		}
		target, err := safeJoin(destDir, name)
		if err != nil {
			return nil, pkgerr.Extraction(archivePath, err)
		}

		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, pkgerr.IO("create directory", target, err)
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return nil, pkgerr.Extraction(archivePath, fmt.Errorf("open %s: %w", name, err))
		}
		n, err := writeEntry(target, rc, budget)
		_ = rc.Close()
		if err != nil {
			return nil, entryError(archivePath, target, err)
		}
		budget -= n

		files.Add(Classify(path.Base(name), name), target)
	}

	return files, nil
}

func extractTarGz(archivePath, destDir string) (*Files, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, pkgerr.IO("open", archivePath, err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, pkgerr.Extraction(archivePath, fmt.Errorf("creating gzip reader: %w", err))
	}
	defer func() { _ = gz.Close() }()

	files := &Files{}
	budget := int64(maxExtractBytes)

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nil, pkgerr.Extraction(archivePath, fmt.Errorf("reading tar entry: %w", nextErr))
		}

		name := normalizeEntryName(hdr.Name)
		if name == "" {
			continue
		}
		target, err := safeJoin(destDir, name)
		if err != nil {
			return nil, pkgerr.Extraction(archivePath, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, pkgerr.IO("create directory", target, err)
			}
		case tar.TypeReg:
			n, err := writeEntry(target, tr, budget)
			if err != nil {
				return nil, entryError(archivePath, target, err)
			}
			budget -= n
			files.Add(Classify(path.Base(name), name), target)
		}
	}

	return files, nil
}

// writeEntry copies one archive entry to target, creating parent
// directories. It fails when more than budget bytes would be written.
func writeEntry(target string, r io.Reader, budget int64) (_ int64, err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n, err := io.Copy(out, io.LimitReader(r, budget+1))
	if err != nil {
		return n, err
	}
	if n > budget {
		return n, errTooLarge
	}
	return n, nil
}

// entryError maps a failed entry write to an extraction error when the
// archive data was at fault and to an io error otherwise.
func entryError(archivePath, target string, err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pkgerr.IO("write", target, err)
	}
	return pkgerr.Extraction(archivePath, err)
}

// normalizeEntryName converts backslash separators and strips leading
// slashes so entries always resolve inside the destination.
func normalizeEntryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return strings.TrimLeft(name, "/")
}

// safeJoin joins an archive entry name onto dir, rejecting entries that
// would escape it.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	return target, nil
}
