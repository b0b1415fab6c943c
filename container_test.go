package reels

import (
	"errors"
	"testing"
)

func TestParseContainer_Normal(t *testing.T) {
	a := newTestArchive(t, map[string]string{
		"META-INF/container.xml": validContainerXML,
		"OEBPS/content.opf":      `<package/>`,
	})

	opfPath, err := parseContainer(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opfPath != "OEBPS/content.opf" {
		t.Errorf("opfPath = %q, want %q", opfPath, "OEBPS/content.opf")
	}
}

func TestParseContainer_WithBOM(t *testing.T) {
	a := newTestArchive(t, map[string]string{
		"META-INF/container.xml": "\xEF\xBB\xBF" + validContainerXML,
	})

	opfPath, err := parseContainer(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opfPath != "OEBPS/content.opf" {
		t.Errorf("opfPath = %q, want %q", opfPath, "OEBPS/content.opf")
	}
}

func TestParseContainer_FirstRootfileWins(t *testing.T) {
	a := newTestArchive(t, map[string]string{
		"META-INF/container.xml": `<container><rootfiles>
  <rootfile full-path=" first.opf " media-type="application/oebps-package+xml"/>
  <rootfile full-path="second.opf" media-type="application/oebps-package+xml"/>
</rootfiles></container>`,
	})

	opfPath, err := parseContainer(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opfPath != "first.opf" {
		t.Errorf("opfPath = %q, want %q", opfPath, "first.opf")
	}
}

func TestParseContainer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"missing", map[string]string{"content.opf": `<package/>`}},
		{"wrong case", map[string]string{"meta-inf/container.xml": validContainerXML}},
		{"malformed", map[string]string{"META-INF/container.xml": `<container><rootfiles>`}},
		{"no rootfiles", map[string]string{"META-INF/container.xml": `<container><rootfiles/></container>`}},
		{"empty full-path", map[string]string{"META-INF/container.xml": `<container><rootfiles><rootfile full-path="  "/></rootfiles></container>`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseContainer(newTestArchive(t, tt.files))
			if !errors.Is(err, ErrContainerParse) {
				t.Errorf("error = %v, want ErrContainerParse", err)
			}
		})
	}
}
