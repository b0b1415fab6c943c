package reels

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// bookNamespace scopes the name-based UUIDs derived from archive bytes.
var bookNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/simp-lee/reels/book"))

// Book is one loaded archive: its title and meaningful chapters in reading
// order. A Book is immutable once Load returns.
type Book struct {
	// ID is derived from the archive bytes; the same file always yields the
	// same ID. It keys persisted progress and annotations.
	ID string

	// Title is the package document title, or "Untitled Book".
	Title string

	// Authors lists the creator entries of the package document.
	Authors []string

	// Language is the first language entry of the package document.
	Language string

	// PackagePath is the archive path of the package document.
	PackagePath string

	// Chapters holds the extracted chapters. Chapter.Index equals the
	// position in this slice.
	Chapters []Chapter

	warnings []string
}

// Chapter is one extracted, sanitized, meaningful content document.
type Chapter struct {
	// Index is the chapter's position in Book.Chapters.
	Index int

	// ID is the manifest id of the spine entry.
	ID string

	// Title is derived from the document's headings or first paragraph.
	Title string

	// Path is the archive path the content was read from.
	Path string

	// Content is the sanitized inner HTML of the document body.
	Content string
}

// Warnings returns the non-fatal problems recorded while loading, such as
// spine entries that could not be resolved.
func (b *Book) Warnings() []string {
	return append([]string(nil), b.warnings...)
}

// NewBook assembles a Book from already extracted chapters. Chapter indexes
// are renumbered to match their positions.
func NewBook(id, title string, chapters []Chapter) *Book {
	b := &Book{ID: id, Title: title, Chapters: make([]Chapter, len(chapters))}
	for i, ch := range chapters {
		ch.Index = i
		b.Chapters[i] = ch
	}
	return b
}

// Option configures Load.
type Option func(*loader)

// WithLogger sets the logger used for diagnostics. Skipped spine entries are
// logged at warn level. The default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithThresholds overrides the meaningful-content thresholds.
func WithThresholds(t Thresholds) Option {
	return func(l *loader) {
		l.thresholds = t
	}
}

// WithSkipLicensePages additionally drops Project Gutenberg licence pages.
func WithSkipLicensePages() Option {
	return func(l *loader) {
		l.skipLicense = true
	}
}

// loader carries the state of one Load call.
type loader struct {
	logger      *slog.Logger
	thresholds  Thresholds
	skipLicense bool
	warnings    []string
}

func newLoader(opts []Option) *loader {
	l := &loader{
		logger:     slog.New(slog.DiscardHandler),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses an EPUB archive held in memory.
//
// Fatal failures wrap ErrArchiveFormat, ErrContainerParse,
// ErrPackageNotFound, ErrPackageParse or ErrDRMProtected. Spine entries
// that cannot be resolved or read are skipped and reported through
// Book.Warnings. A book with zero chapters is not an error.
func Load(ctx context.Context, data []byte, opts ...Option) (*Book, error) {
	return LoadReader(ctx, bytes.NewReader(data), int64(len(data)), opts...)
}

// LoadReader parses an EPUB archive from an io.ReaderAt with the given size.
func LoadReader(ctx context.Context, r io.ReaderAt, size int64, opts ...Option) (*Book, error) {
	l := newLoader(opts)

	a, err := OpenArchive(r, size)
	if err != nil {
		return nil, err
	}

	fontObfuscation, err := checkDRM(a)
	if err != nil {
		return nil, err
	}
	if fontObfuscation {
		l.warnings = append(l.warnings, "font obfuscation detected; obfuscated fonts are ignored")
	}

	pkg, err := resolvePackage(a)
	if err != nil {
		return nil, err
	}
	l.warnings = append(l.warnings, pkg.Warnings...)

	chapters, err := l.extractChapters(ctx, a, pkg)
	if err != nil {
		return nil, err
	}

	id, err := archiveID(r, size)
	if err != nil {
		return nil, err
	}

	l.logger.Info("book loaded",
		"title", pkg.Title,
		"spine_items", len(pkg.Spine),
		"chapters", len(chapters),
		"warnings", len(l.warnings))

	return &Book{
		ID:          id,
		Title:       pkg.Title,
		Authors:     pkg.Authors,
		Language:    pkg.Language,
		PackagePath: pkg.Path,
		Chapters:    chapters,
		warnings:    l.warnings,
	}, nil
}

// Open reads and parses the EPUB file at name.
func Open(ctx context.Context, name string, opts ...Option) (*Book, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("epub: open %s: %w", name, err)
	}
	return Load(ctx, data, opts...)
}

// archiveID derives the book ID from the archive bytes.
func archiveID(r io.ReaderAt, size int64) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, io.NewSectionReader(r, 0, size)); err != nil {
		return "", fmt.Errorf("epub: hash archive: %w", err)
	}
	return uuid.NewSHA1(bookNamespace, h.Sum(nil)).String(), nil
}
