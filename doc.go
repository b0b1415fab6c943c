// Package reels loads EPUB archives into a flat, paginated reading model
// for a vertically swiped, page-at-a-time reader.
//
// This package covers ingestion: it opens the ZIP container, resolves the
// package document named by META-INF/container.xml, walks the spine in
// reading order, drops documents without meaningful text, derives chapter
// titles, and sanitizes each chapter's markup. Pagination lives in the
// paginate package and reading position in the navigate package; the
// session package ties them together.
//
// # Loading a book
//
// Use [Load] for bytes already in memory, [LoadReader] for an [io.ReaderAt],
// or [Open] for a file path:
//
//	book, err := reels.Load(ctx, data, reels.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	for _, ch := range book.Chapters {
//	    fmt.Println(ch.Index, ch.Title)
//	}
//
// # Resolving content paths
//
// Manifest hrefs are resolved by trying, in order, the raw href, the href
// joined to the package document directory, the href with its leading slash
// removed, and finally the percent-decoded package-relative href. The first
// candidate present in the archive is used.
//
// # Error Handling
//
// The package defines sentinel errors for fatal failures:
//   - [ErrArchiveFormat] – the input is not a ZIP archive
//   - [ErrContainerParse] – META-INF/container.xml is missing or invalid
//   - [ErrPackageNotFound] – the package document it names is absent
//   - [ErrPackageParse] – the package document is not well-formed
//   - [ErrDRMProtected] – the content is encrypted
//
// Problems with individual spine entries are not errors: the entry is
// skipped and described in [Book.Warnings].
package reels
