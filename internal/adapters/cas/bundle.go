package cas

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

const (
	// maxEntryHeader bounds the JSON header of one archive entry.
	maxEntryHeader = 1 << 16
	// maxEntryContent bounds the content of one archive entry.
	maxEntryContent = 1 << 36
)

// bundleMeta is the uncompressed bundle header.
type bundleMeta struct {
	Outputs []string `json:"outputs"`
}

// entryHeader describes one archived file, symlink or directory.
type entryHeader struct {
	Path          string      `json:"path"`
	Mode          fs.FileMode `json:"mode"`
	MTime         string      `json:"mtime"`
	ContentLength int64       `json:"contentLength"`
}

// Pack archives the given repo-relative outputs below root.
//
// The layout is an 8-byte big-endian metadata length, the JSON metadata, then a gzip stream of
// entries. Each entry is a 4-byte big-endian header length, the JSON header and the raw content.
// Outputs that do not exist are skipped. When nothing is archived the bundle is empty.
func Pack(root string, outputs []string) ([]byte, []string, error) {
	var archive bytes.Buffer
	zw := gzip.NewWriter(&archive)

	var files []string
	entries := 0
	for _, output := range outputs {
		base := filepath.Join(root, filepath.FromSlash(output))
		if _, err := os.Lstat(base); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, nil, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", base)
		}

		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := writeEntry(zw, root, filepath.ToSlash(rel), info); err != nil {
				return err
			}
			entries++
			if !d.IsDir() {
				files = append(files, filepath.ToSlash(rel))
			}
			return nil
		})
		if err != nil {
			return nil, nil, zerr.With(zerr.Wrap(err, "failed to archive output"), "output", output)
		}
	}

	if entries == 0 {
		return nil, nil, nil
	}
	if err := zw.Close(); err != nil {
		return nil, nil, zerr.Wrap(err, "failed to finish bundle")
	}

	meta, err := json.Marshal(bundleMeta{Outputs: outputs})
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to encode bundle metadata")
	}

	var out bytes.Buffer
	out.Grow(8 + len(meta) + archive.Len())
	_ = binary.Write(&out, binary.BigEndian, uint64(len(meta)))
	out.Write(meta)
	out.Write(archive.Bytes())
	return out.Bytes(), files, nil
}

func writeEntry(w io.Writer, root, rel string, info fs.FileInfo) error {
	var content []byte
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		content = []byte(target)
	case info.Mode().IsRegular():
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // Declared output
		if err != nil {
			return err
		}
		content = data
	}

	header, err := json.Marshal(entryHeader{
		Path:          rel,
		Mode:          info.Mode(),
		MTime:         strconv.FormatInt(info.ModTime().UnixNano(), 10),
		ContentLength: int64(len(content)),
	})
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(header))); err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// Unpack replays a bundle below root and returns the restored files.
// Files not contained in the bundle are left untouched.
func Unpack(root string, bundle []byte) ([]string, error) {
	if len(bundle) == 0 {
		return nil, nil
	}
	if len(bundle) < 8 {
		return nil, zerr.Wrap(domain.ErrCorruptBundle, "truncated header")
	}
	metaLen := binary.BigEndian.Uint64(bundle[:8])
	if metaLen > uint64(len(bundle)-8) {
		return nil, zerr.Wrap(domain.ErrCorruptBundle, "metadata exceeds bundle")
	}
	var meta bundleMeta
	if err := json.Unmarshal(bundle[8:8+metaLen], &meta); err != nil {
		return nil, zerr.Wrap(domain.ErrCorruptBundle, "invalid metadata")
	}

	zr, err := gzip.NewReader(bytes.NewReader(bundle[8+metaLen:]))
	if err != nil {
		return nil, zerr.Wrap(domain.ErrCorruptBundle, "invalid archive stream")
	}
	defer zr.Close() //nolint:errcheck // Read-only stream
	r := bufio.NewReader(zr)

	var files []string
	for {
		var headerLen uint32
		if err := binary.Read(r, binary.BigEndian, &headerLen); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, zerr.Wrap(domain.ErrCorruptBundle, "truncated entry")
		}
		if headerLen > maxEntryHeader {
			return nil, zerr.With(zerr.Wrap(domain.ErrCorruptBundle, "entry header too large"), "length", headerLen)
		}
		raw := make([]byte, headerLen)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, zerr.Wrap(domain.ErrCorruptBundle, "truncated entry header")
		}
		var header entryHeader
		if err := json.Unmarshal(raw, &header); err != nil {
			return nil, zerr.Wrap(domain.ErrCorruptBundle, "invalid entry header")
		}
		if header.ContentLength < 0 || header.ContentLength > maxEntryContent {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(domain.ErrCorruptBundle, "invalid entry content length"), "path", header.Path),
				"length", header.ContentLength,
			)
		}
		// The buffer grows with the bytes read, never with the declared length.
		var content bytes.Buffer
		n, err := content.ReadFrom(io.LimitReader(r, header.ContentLength))
		if err != nil || n != header.ContentLength {
			return nil, zerr.With(zerr.Wrap(domain.ErrCorruptBundle, "truncated entry content"), "path", header.Path)
		}

		if err := restoreEntry(root, header, content.Bytes()); err != nil {
			return nil, err
		}
		if !header.Mode.IsDir() {
			files = append(files, header.Path)
		}
	}
	return files, nil
}

func restoreEntry(root string, header entryHeader, content []byte) error {
	local := filepath.FromSlash(header.Path)
	if !filepath.IsLocal(local) {
		return zerr.With(zerr.Wrap(domain.ErrCorruptBundle, "entry escapes the workspace"), "path", header.Path)
	}
	dst := filepath.Join(root, local)
	if err := os.MkdirAll(filepath.Dir(dst), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create parent directory"), "path", dst)
	}

	switch {
	case header.Mode.IsDir():
		if err := os.MkdirAll(dst, domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", dst)
		}
		return os.Chmod(dst, header.Mode.Perm())
	case header.Mode&fs.ModeSymlink != 0:
		_ = os.Remove(dst)
		if err := os.Symlink(string(content), dst); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to restore symlink"), "path", dst)
		}
		return nil
	}

	_ = os.Remove(dst)
	if err := os.WriteFile(dst, content, header.Mode.Perm()); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to restore file"), "path", dst)
	}
	if err := os.Chmod(dst, header.Mode.Perm()); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to restore mode"), "path", dst)
	}
	ns, err := strconv.ParseInt(header.MTime, 10, 64)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrCorruptBundle, "invalid mtime"), "path", header.Path)
	}
	mtime := time.Unix(0, ns)
	if err := os.Chtimes(dst, mtime, mtime); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to restore mtime"), "path", dst)
	}
	return nil
}
