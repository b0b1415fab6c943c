package main

import (
	"bytes"
	"testing"

	"github.com/simp-lee/reels"
)

func TestSetOutputFormat(t *testing.T) {
	defer func() { output = formatYAML }()

	if err := setOutputFormat("json"); err != nil || output != formatJSON {
		t.Errorf("setOutputFormat(json) = %v, output %q", err, output)
	}
	if err := setOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWriteOut(t *testing.T) {
	info := newBookInfo(reels.NewBook("id-1", "Sample", []reels.Chapter{
		{Index: 0, ID: "c1", Title: "Caf\u00e9", Content: "<p>caf\u00e9</p>"},
	}))
	if info.Chapters[0].Runes != 11 {
		t.Errorf("Runes = %d, want 11", info.Chapters[0].Runes)
	}

	tests := []struct {
		f    format
		want string
	}{
		{formatYAML, "title: Sample\n"},
		{formatJSON, "\"title\": \"Sample\""},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := writeOut(&buf, tt.f, info); err != nil {
			t.Fatalf("writeOut(%s): %v", tt.f, err)
		}
		if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
			t.Errorf("writeOut(%s) missing %q:\n%s", tt.f, tt.want, buf.String())
		}
	}
	if err := writeOut(&bytes.Buffer{}, "toml", info); err == nil {
		t.Error("expected error for unknown format")
	}
}
