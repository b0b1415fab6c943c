// Package settings holds the reader settings that drive pagination and
// chapter extraction, and loads them from defaults, a YAML file and
// REELS_-prefixed environment variables.
package settings

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/simp-lee/reels"
	"github.com/simp-lee/reels/paginate"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("settings: invalid")

// Settings is the complete reader configuration.
type Settings struct {
	Typography Typography `mapstructure:"typography" json:"typography" yaml:"typography"`
	Viewport   Viewport   `mapstructure:"viewport" json:"viewport" yaml:"viewport"`
	Content    Content    `mapstructure:"content" json:"content" yaml:"content"`
	Navigation Navigation `mapstructure:"navigation" json:"navigation" yaml:"navigation"`
}

// Typography configures the reading font.
type Typography struct {
	FontSize   float64   `mapstructure:"font_size" json:"font_size" yaml:"font_size"`
	LineHeight float64   `mapstructure:"line_height" json:"line_height" yaml:"line_height"`
	FontSizes  []float64 `mapstructure:"font_sizes" json:"font_sizes" yaml:"font_sizes"` // selectable sizes, ascending
}

// Viewport describes the reader window. The page box is derived from it by
// PageConfig.
type Viewport struct {
	Width           float64 `mapstructure:"width" json:"width" yaml:"width"`
	Height          float64 `mapstructure:"height" json:"height" yaml:"height"`
	HeaderHeight    float64 `mapstructure:"header_height" json:"header_height" yaml:"header_height"`             // chrome above and below the page
	MaxContentWidth float64 `mapstructure:"max_content_width" json:"max_content_width" yaml:"max_content_width"` // cap on the text column
	Gutter          float64 `mapstructure:"gutter" json:"gutter" yaml:"gutter"`                                  // horizontal padding
}

// Content configures chapter extraction.
type Content struct {
	MinText          int  `mapstructure:"min_text" json:"min_text" yaml:"min_text"`
	MinDense         int  `mapstructure:"min_dense" json:"min_dense" yaml:"min_dense"`
	MinElementText   int  `mapstructure:"min_element_text" json:"min_element_text" yaml:"min_element_text"`
	SkipLicensePages bool `mapstructure:"skip_license_pages" json:"skip_license_pages" yaml:"skip_license_pages"`
}

// Navigation configures page transitions.
type Navigation struct {
	SettleDelay time.Duration `mapstructure:"settle_delay" json:"settle_delay" yaml:"settle_delay"`
}

// Default returns the stock reader settings.
func Default() Settings {
	return Settings{
		Typography: Typography{
			FontSize:   18,
			LineHeight: 1.8,
			FontSizes:  []float64{15, 16, 18, 20, 22, 24},
		},
		Viewport: Viewport{
			Width:           1024,
			Height:          768,
			HeaderHeight:    110,
			MaxContentWidth: 600,
			Gutter:          60,
		},
		Content: Content{
			MinText:        100,
			MinDense:       200,
			MinElementText: 20,
		},
		Navigation: Navigation{
			SettleDelay: 300 * time.Millisecond,
		},
	}
}

// Validate reports the first problem with s.
func (s Settings) Validate() error {
	t, v := s.Typography, s.Viewport
	switch {
	case len(t.FontSizes) == 0:
		return fmt.Errorf("%w: no font sizes", ErrInvalid)
	case !slices.Contains(t.FontSizes, t.FontSize):
		return fmt.Errorf("%w: font size %g is not one of %v", ErrInvalid, t.FontSize, t.FontSizes)
	case t.LineHeight <= 0:
		return fmt.Errorf("%w: line height %g", ErrInvalid, t.LineHeight)
	case v.MaxContentWidth <= 0:
		return fmt.Errorf("%w: max content width %g", ErrInvalid, v.MaxContentWidth)
	case v.HeaderHeight < 0 || v.Gutter < 0:
		return fmt.Errorf("%w: negative header height or gutter", ErrInvalid)
	case s.Content.MinText < 0 || s.Content.MinDense < 0 || s.Content.MinElementText < 0:
		return fmt.Errorf("%w: negative content threshold", ErrInvalid)
	case s.Navigation.SettleDelay < 0:
		return fmt.Errorf("%w: negative settle delay", ErrInvalid)
	}
	if err := s.PageConfig().Validate(); err != nil {
		return fmt.Errorf("%w: viewport %gx%g leaves no page: %v", ErrInvalid, v.Width, v.Height, err)
	}
	return nil
}

// PageConfig derives the pagination snapshot: the text column is the
// window width less the gutter, capped at MaxContentWidth, and the page is
// the window height less the header.
func (s Settings) PageConfig() paginate.Config {
	v := s.Viewport
	return paginate.Config{
		Font: paginate.Font{
			Size:       s.Typography.FontSize,
			LineHeight: s.Typography.LineHeight,
		},
		Viewport: paginate.Viewport{
			Width:  math.Min(v.MaxContentWidth, v.Width-v.Gutter),
			Height: v.Height - v.HeaderHeight,
		},
	}
}

// LoadOptions returns the chapter extraction options for s.
func (s Settings) LoadOptions() []reels.Option {
	opts := []reels.Option{reels.WithThresholds(reels.Thresholds{
		MinText:        s.Content.MinText,
		MinDense:       s.Content.MinDense,
		MinElementText: s.Content.MinElementText,
	})}
	if s.Content.SkipLicensePages {
		opts = append(opts, reels.WithSkipLicensePages())
	}
	return opts
}

// NextFontSize returns the selectable size after the current one, wrapping
// to the smallest after the largest. An unlisted current size advances to
// the next larger listed size.
func (s Settings) NextFontSize() float64 {
	sizes := s.Typography.FontSizes
	if len(sizes) == 0 {
		return s.Typography.FontSize
	}
	if i := slices.Index(sizes, s.Typography.FontSize); i >= 0 {
		return sizes[(i+1)%len(sizes)]
	}
	for _, size := range sizes {
		if size > s.Typography.FontSize {
			return size
		}
	}
	return sizes[0]
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	s.Typography.FontSizes = slices.Clone(s.Typography.FontSizes)
	return s
}

// PaginationEqual reports whether a and b paginate identically.
func PaginationEqual(a, b Settings) bool {
	return a.PageConfig() == b.PageConfig()
}
