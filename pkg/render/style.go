package render

import (
	"fmt"
	"strconv"

	"github.com/shishobooks/folio/pkg/settings"
)

type palette struct {
	background string
	foreground string
}

var palettes = map[string]palette{
	settings.ThemeLight: {"#FFFFFF", "#262626"},
	settings.ThemeSepia: {"#F4ECD8", "#5B4636"},
	settings.ThemeDark:  {"#121212", "#E6E6E6"},
}

var fontStacks = map[string]string{
	settings.FontFamilySerif: "Noto Serif, serif",
	settings.FontFamilySans:  "Noto Sans, sans-serif",
}

// Style is everything a renderer needs to know about how the reader wants
// text to look.
type Style struct {
	Theme         string  `json:"theme"`
	Background    string  `json:"background"`
	Foreground    string  `json:"foreground"`
	FontFamily    string  `json:"font_family"`
	FontSizePx    int     `json:"font_size_px"`
	LineHeight    float64 `json:"line_height"`
	MarginPercent int     `json:"margin_percent"`
}

// NewStyle builds a style from a theme and typography. Unknown themes and
// font families fall back to light and serif.
func NewStyle(theme string, typo settings.TypographySettings) Style {
	p, ok := palettes[theme]
	if !ok {
		theme = settings.ThemeLight
		p = palettes[theme]
	}
	font, ok := fontStacks[typo.FontFamily]
	if !ok {
		font = fontStacks[settings.FontFamilySerif]
	}
	return Style{
		Theme:         theme,
		Background:    p.background,
		Foreground:    p.foreground,
		FontFamily:    font,
		FontSizePx:    typo.FontSizePx,
		LineHeight:    typo.LineHeight,
		MarginPercent: typo.MarginPercent,
	}
}

func StyleFromPreferences(prefs settings.Preferences) Style {
	return NewStyle(prefs.Theme, prefs.Typography)
}

// CSS renders the style as a stylesheet for the document body.
func (s Style) CSS() string {
	return fmt.Sprintf(
		"html,body{background:%s;color:%s;}body{font-family:%s;font-size:%dpx;line-height:%s;margin:0 %d%%;}a{color:inherit;}",
		s.Background, s.Foreground, s.FontFamily, s.FontSizePx, strconv.FormatFloat(s.LineHeight, 'f', -1, 64), s.MarginPercent,
	)
}
