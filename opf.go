package reels

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html/charset"
)

// defaultBookTitle is used when the package document carries no title.
const defaultBookTitle = "Untitled Book"

// opfPackage represents the root <package> element of an OPF file.
// Element names are matched by local name so that namespaced (dc:title)
// and bare (title) forms are both accepted.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

// opfMetadata holds the metadata elements the reader displays.
type opfMetadata struct {
	Titles    []string `xml:"title"`
	Creators  []string `xml:"creator"`
	Languages []string `xml:"language"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// ManifestItem is one resource declared in the package manifest.
type ManifestItem struct {
	// ID is the manifest id (case-sensitive).
	ID string

	// Href is the resource path as written, relative to the package document.
	Href string

	// MediaType is the declared MIME type.
	MediaType string
}

// PackageDocument is the resolved OPF: title, manifest, and reading order.
type PackageDocument struct {
	// Path is the archive path of the package document.
	Path string

	// Dir is path.Dir(Path); manifest hrefs are relative to it.
	Dir string

	// Title is the first title element's text, or "Untitled Book".
	Title string

	// Authors lists the non-empty creator entries in document order.
	Authors []string

	// Language is the first non-empty language entry.
	Language string

	// Manifest maps manifest id to item. The first declaration of an id wins.
	Manifest map[string]ManifestItem

	// Spine lists manifest ids in reading order. Duplicates are preserved.
	Spine []string

	// Warnings records non-fatal problems such as duplicate manifest ids.
	Warnings []string
}

// resolvePackage locates the package document through the container
// descriptor and parses it.
func resolvePackage(a *Archive) (*PackageDocument, error) {
	opfPath, err := parseContainer(a)
	if err != nil {
		return nil, err
	}
	if !a.HasEntry(opfPath) {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, opfPath)
	}
	data, err := a.ReadEntry(opfPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageNotFound, err)
	}
	pkg, err := parsePackage(data)
	if err != nil {
		return nil, err
	}
	pkg.Path = opfPath
	pkg.Dir = path.Dir(opfPath)
	return pkg, nil
}

// parsePackage decodes OPF bytes. HTML named entities, which some
// publishers leave in metadata, are accepted; declared non-UTF-8 encodings
// are transcoded.
func parsePackage(data []byte) (*PackageDocument, error) {
	d := xml.NewDecoder(bytes.NewReader(stripBOM(data)))
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	var raw opfPackage
	if err := d.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageParse, err)
	}

	pkg := &PackageDocument{
		Title:    defaultBookTitle,
		Manifest: make(map[string]ManifestItem, len(raw.Manifest.Items)),
		Spine:    make([]string, 0, len(raw.Spine.ItemRefs)),
	}
	if len(raw.Metadata.Titles) > 0 {
		if t := strings.TrimSpace(raw.Metadata.Titles[0]); t != "" {
			pkg.Title = t
		}
	}
	for _, c := range raw.Metadata.Creators {
		if v := strings.TrimSpace(c); v != "" {
			pkg.Authors = append(pkg.Authors, v)
		}
	}
	for _, l := range raw.Metadata.Languages {
		if v := strings.TrimSpace(l); v != "" {
			pkg.Language = v
			break
		}
	}

	for _, item := range raw.Manifest.Items {
		if _, dup := pkg.Manifest[item.ID]; dup {
			pkg.Warnings = append(pkg.Warnings, fmt.Sprintf("duplicate manifest id %q ignored", item.ID))
			continue
		}
		pkg.Manifest[item.ID] = ManifestItem{
			ID:        item.ID,
			Href:      strings.TrimSpace(item.Href),
			MediaType: item.MediaType,
		}
	}
	for _, ref := range raw.Spine.ItemRefs {
		pkg.Spine = append(pkg.Spine, ref.IDRef)
	}
	return pkg, nil
}
