package reels

import "testing"

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "script and style removed",
			input: `<html><head><style>p{}</style></head><body><p>Hi</p><script>x()</script><style>b{}</style></body></html>`,
			want:  `<p>Hi</p>`,
		},
		{
			name:  "presentation attributes stripped",
			input: `<body><p class="indent" style="color:red" id="p1">Hi</p></body>`,
			want:  `<p id="p1">Hi</p>`,
		},
		{
			name:  "event handlers stripped",
			input: `<body><p onclick="x()" ONMOUSEOVER="y()">Hi</p></body>`,
			want:  `<p>Hi</p>`,
		},
		{
			name:  "unsafe href removed",
			input: `<body><a href="javascript:alert(1)">x</a><a href="vbscript:y">y</a></body>`,
			want:  `<a>x</a><a>y</a>`,
		},
		{
			name:  "safe links kept",
			input: `<body><a href="#note1">1</a><a href="../Text/ch2.xhtml">2</a><a href="https://example.com">3</a><a href="mailto:a@b.c">4</a></body>`,
			want:  `<a href="#note1">1</a><a href="../Text/ch2.xhtml">2</a><a href="https://example.com">3</a><a href="mailto:a@b.c">4</a>`,
		},
		{
			name:  "data image kept, other data removed",
			input: `<body><img src="data:image/png;base64,AA"/><img src="data:text/html,x"/></body>`,
			want:  `<img src="data:image/png;base64,AA"/><img/>`,
		},
		{
			name:  "nested elements cleaned",
			input: `<body><div class="a"><blockquote style="b"><p class="c">deep</p></blockquote></div></body>`,
			want:  `<div><blockquote><p>deep</p></blockquote></div>`,
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "<body>\n  <p>x</p>\n</body>",
			want:  `<p>x</p>`,
		},
		{
			name:  "empty body",
			input: `<html><body></body></html>`,
			want:  ``,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeString(tt.input); got != tt.want {
				t.Errorf("SanitizeString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitize_Nil(t *testing.T) {
	if got := Sanitize(nil); got != "" {
		t.Errorf("Sanitize(nil) = %q, want empty", got)
	}
}

func TestIsSafeURI(t *testing.T) {
	tests := []struct {
		uri  string
		want bool
	}{
		{"", true},
		{"#frag", true},
		{"/abs/path.xhtml", true},
		{"./rel.xhtml", true},
		{"images/a.png", true},
		{"HTTPS://EXAMPLE.COM", true},
		{" javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"file:///etc/passwd", false},
		{"DATA:IMAGE/PNG;base64,AA", true},
	}
	for _, tt := range tests {
		if got := isSafeURI(tt.uri); got != tt.want {
			t.Errorf("isSafeURI(%q) = %v, want %v", tt.uri, got, tt.want)
		}
	}
}
