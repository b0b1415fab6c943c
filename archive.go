package reels

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// maxDecompressSize is the maximum allowed decompressed size for a single ZIP entry.
// This guards against zip bomb attacks. Defaults to 256 MB.
const maxDecompressSize int64 = 256 * 1024 * 1024

// Archive is a read-only view over a ZIP container with exact-name entry
// lookup. Lookups are case-sensitive; a single leading slash on either the
// query or the stored entry name is ignored.
//
// An Archive is safe for concurrent reads.
type Archive struct {
	zr      *zip.Reader
	entries map[string]*zip.File
	names   []string
	limit   int64
}

// NewArchive opens an in-memory ZIP container.
func NewArchive(data []byte) (*Archive, error) {
	return OpenArchive(bytes.NewReader(data), int64(len(data)))
}

// OpenArchive opens a ZIP container from an io.ReaderAt with the given size.
// It returns an error wrapping ErrArchiveFormat if the bytes are not a ZIP.
func OpenArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}
	a := &Archive{
		zr:      zr,
		entries: make(map[string]*zip.File, len(zr.File)),
		limit:   maxDecompressSize,
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue // directory
		}
		key := entryKey(f.Name)
		if _, exists := a.entries[key]; exists {
			continue // first entry wins
		}
		a.entries[key] = f
		a.names = append(a.names, f.Name)
	}
	return a, nil
}

// entryKey normalises a lookup path by dropping one leading slash.
func entryKey(name string) string {
	return strings.TrimPrefix(name, "/")
}

// Entries returns the names of all file entries in archive order.
func (a *Archive) Entries() []string {
	return append([]string(nil), a.names...)
}

// HasEntry reports whether the archive holds a file entry at name.
func (a *Archive) HasEntry(name string) bool {
	if name == "" {
		return false
	}
	_, ok := a.entries[entryKey(name)]
	return ok
}

// ReadEntry reads the raw bytes of the entry at name.
func (a *Archive) ReadEntry(name string) ([]byte, error) {
	f, ok := a.entries[entryKey(name)]
	if !ok || name == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrFileNotFound)
	}
	return readZipFileWithLimit(f, a.limit)
}

// ReadEntryAsText reads the entry at name and decodes it to a UTF-8 string
// using the encoding the entry declares (byte order mark, XML declaration,
// or HTML meta charset). Entries without a declaration are read as UTF-8.
func (a *Archive) ReadEntryAsText(name string) (string, error) {
	data, err := a.ReadEntry(name)
	if err != nil {
		return "", err
	}
	text, err := decodeText(data)
	if err != nil {
		return "", fmt.Errorf("epub: decode %s: %w", name, err)
	}
	return text, nil
}

var (
	xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	metaCharset     = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([A-Za-z0-9._:-]+)`)
)

// decodeText converts entry bytes to a valid UTF-8 string.
func decodeText(data []byte) (string, error) {
	enc, name := declaredEncoding(data)
	if enc == nil || name == "utf-8" {
		data = stripBOM(data)
		return strings.ToValidUTF8(string(data), "\uFFFD"), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(out), "\uFEFF"), nil
}

// declaredEncoding returns the encoding an entry declares for itself, or nil
// when it declares none.
func declaredEncoding(data []byte) (encoding.Encoding, string) {
	if e, name, certain := charset.DetermineEncoding(data, ""); certain {
		return e, name // byte order mark
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := xmlDeclEncoding.FindSubmatch(head)
	if m == nil {
		m = metaCharset.FindSubmatch(head)
	}
	if m == nil {
		return nil, ""
	}
	e, err := htmlindex.Get(string(m[1]))
	if err != nil {
		return nil, ""
	}
	name, err := htmlindex.Name(e)
	if err != nil {
		return nil, ""
	}
	return e, name
}

// joinPackagePath joins href onto the package document directory. A root
// directory ("." or "") leaves href unchanged.
func joinPackagePath(dir, href string) string {
	if dir == "" || dir == "." {
		return href
	}
	return path.Join(dir, href)
}

// isSafePath checks whether p is a safe ZIP-internal path that does not
// escape the archive root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(entryKey(p))
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFileWithLimit reads the full contents of a ZIP entry, refusing
// entries whose decompressed size exceeds limit and entries whose names
// escape the archive root.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("epub: unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size may be forged; read one byte past the limit to tell.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("epub: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}

	return data, nil
}
