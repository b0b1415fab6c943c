package reels

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"
)

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// longText is comfortably above the 100 character visible-text threshold.
var longText = strings.Repeat("The quick brown fox jumps over the lazy dog. ", 4)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns its bytes. Entries are written in sorted
// order, mimetype first.
func buildTestZip(t testing.TB, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := files["mimetype"]; ok {
		names = append([]string{"mimetype"}, names...)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// newTestArchive builds an Archive over files.
func newTestArchive(t testing.TB, files map[string]string) *Archive {
	t.Helper()
	a, err := NewArchive(buildTestZip(t, files))
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	return a
}

// testPackage returns an OPF document with the given title, manifest items
// and spine itemrefs.
func testPackage(title, manifest, spine string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>` + title + `</dc:title>
    <dc:creator>Jane Doe</dc:creator>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>` + manifest + `</manifest>
  <spine>` + spine + `</spine>
</package>`
}

// xhtml wraps body in a minimal XHTML content document.
func xhtml(body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Doc</title></head><body>` + body + `</body></html>`
}

// buildTestEPub returns the bytes of an EPUB whose spine lists one XHTML
// document per body, stored under OEBPS/ as ch1.xhtml, ch2.xhtml, ...
func buildTestEPub(t testing.TB, title string, bodies ...string) []byte {
	t.Helper()
	var manifest, spine strings.Builder
	files := map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": validContainerXML,
	}
	for i, body := range bodies {
		id := fmt.Sprintf("ch%d", i+1)
		fmt.Fprintf(&manifest, `<item id="%s" href="%s.xhtml" media-type="application/xhtml+xml"/>`, id, id)
		fmt.Fprintf(&spine, `<itemref idref="%s"/>`, id)
		files["OEBPS/"+id+".xhtml"] = xhtml(body)
	}
	files["OEBPS/content.opf"] = testPackage(title, manifest.String(), spine.String())
	return buildTestZip(t, files)
}
