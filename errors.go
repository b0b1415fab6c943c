package reels

import "errors"

// Sentinel errors returned by the reels package.
var (
	// ErrArchiveFormat indicates the input bytes are not a readable ZIP
	// container. The load attempt fails and no Book is produced.
	ErrArchiveFormat = errors.New("epub: not a valid ZIP archive")

	// ErrContainerParse indicates META-INF/container.xml is missing,
	// malformed, or names no package document.
	ErrContainerParse = errors.New("epub: invalid container descriptor")

	// ErrPackageNotFound indicates the package document named by the
	// container descriptor does not exist in the archive.
	ErrPackageNotFound = errors.New("epub: package document not found")

	// ErrPackageParse indicates the package document exists but is not
	// well-formed XML.
	ErrPackageParse = errors.New("epub: invalid package document")

	// ErrDRMProtected indicates the archive is encrypted with a DRM scheme
	// (Adobe ADEPT, Apple FairPlay, Readium LCP) and cannot be read.
	ErrDRMProtected = errors.New("epub: file is DRM protected")

	// ErrFileNotFound indicates the requested entry does not exist
	// in the archive.
	ErrFileNotFound = errors.New("epub: file not found in archive")
)
