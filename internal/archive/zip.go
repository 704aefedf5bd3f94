// =============================================================================
// Catalog to Dolibarr Converter - Archive Packaging
// =============================================================================
//
// Packs named buffers into a ZIP container and extracts workbooks from
// uploaded ZIP files. Compression is the only potentially slow step of a
// conversion, so Package honours context cancellation between entries.
//
// =============================================================================

package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
)

// MaxEntrySize caps the decompressed size of a single extracted entry.
const MaxEntrySize = 256 << 20

// macOSMetadataDir holds resource forks added by the macOS archiver.
const macOSMetadataDir = "__MACOSX"

// File is one named buffer inside an archive.
type File struct {
	Name string
	Data []byte
}

// Package compresses files, in order, into a single ZIP buffer.
//
// PARAMETERS:
//   - ctx: Checked before each entry; cancellation aborts packaging.
//   - files: The entries to store. Names must be unique.
//
// RETURNS:
//   - The ZIP bytes.
//   - An error if the context is done or an entry cannot be written.
func Package(ctx context.Context, files []File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return nil, err
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   file.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to create archive entry %s: %w", file.Name, err)
		}
		if _, err := w.Write(file.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to write archive entry %s: %w", file.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Extract returns the entries of a ZIP buffer whose name ends with ext
// (case-insensitive), in archive order. Directories and macOS metadata
// entries are ignored.
//
// RETURNS:
//   - The matching entries with their decompressed content.
//   - An error if data is not a ZIP archive or an entry is unreadable.
func Extract(data []byte, ext string) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	ext = strings.ToLower(ext)
	var files []File
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name, macOSMetadataDir) {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(entry.Name), ext) {
			continue
		}

		content, err := readEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %s: %w", entry.Name, err)
		}
		files = append(files, File{Name: entry.Name, Data: content})
	}
	return files, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if len(content) > MaxEntrySize {
		return nil, fmt.Errorf("entry exceeds %d bytes", MaxEntrySize)
	}
	return content, nil
}

// IsArchive reports whether name designates a ZIP upload. XLSX files are ZIP
// containers too, so the decision is made on the extension alone.
func IsArchive(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}
