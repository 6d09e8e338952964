package settings

import (
	"fmt"

	"github.com/shishobooks/folio/pkg/errcodes"
)

const (
	//tygo:emit export type Theme = typeof ThemeLight | typeof ThemeSepia | typeof ThemeDark;
	ThemeLight = "light"
	ThemeSepia = "sepia"
	ThemeDark  = "dark"
)

const (
	//tygo:emit export type FontFamily = typeof FontFamilySerif | typeof FontFamilySans;
	FontFamilySerif = "serif"
	FontFamilySans  = "sans"
)

const (
	MinFontSizePx    = 12
	MaxFontSizePx    = 28
	MinLineHeight    = 1.2
	MaxLineHeight    = 2.0
	MinMarginPercent = 5
	MaxMarginPercent = 15
)

type TypographySettings struct {
	FontFamily    string  `json:"font_family" tstype:"FontFamily" validate:"font_family"`
	FontSizePx    int     `json:"font_size_px" validate:"gte=12,lte=28"`
	LineHeight    float64 `json:"line_height" validate:"gte=1.2,lte=2"`
	MarginPercent int     `json:"margin_percent" validate:"gte=5,lte=15"`
}

type Preferences struct {
	Theme      string             `json:"theme" tstype:"Theme"`
	Typography TypographySettings `json:"typography"`
}

func DefaultTypography() TypographySettings {
	return TypographySettings{
		FontFamily:    FontFamilySerif,
		FontSizePx:    18,
		LineHeight:    1.5,
		MarginPercent: 10,
	}
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:      ThemeLight,
		Typography: DefaultTypography(),
	}
}

var themeRotation = map[string]string{
	ThemeLight: ThemeSepia,
	ThemeSepia: ThemeDark,
	ThemeDark:  ThemeLight,
}

// NextTheme rotates light -> sepia -> dark -> light. Unknown themes restart
// the rotation at sepia, as if they were light.
func NextTheme(theme string) string {
	if next, ok := themeRotation[theme]; ok {
		return next
	}
	return ThemeSepia
}

func IsValidTheme(theme string) bool {
	_, ok := themeRotation[theme]
	return ok
}

// Validate checks every field against its allowed range.
func (t TypographySettings) Validate() error {
	if t.FontFamily != FontFamilySerif && t.FontFamily != FontFamilySans {
		return errcodes.ValidationError(fmt.Sprintf("%q must be one of the following: %q, %q", "font_family", FontFamilySerif, FontFamilySans))
	}
	if t.FontSizePx < MinFontSizePx || t.FontSizePx > MaxFontSizePx {
		return errcodes.ValidationError(fmt.Sprintf("%q must be between %d and %d", "font_size_px", MinFontSizePx, MaxFontSizePx))
	}
	if t.LineHeight < MinLineHeight || t.LineHeight > MaxLineHeight {
		return errcodes.ValidationError(fmt.Sprintf("%q must be between %.1f and %.1f", "line_height", MinLineHeight, MaxLineHeight))
	}
	if t.MarginPercent < MinMarginPercent || t.MarginPercent > MaxMarginPercent {
		return errcodes.ValidationError(fmt.Sprintf("%q must be between %d and %d", "margin_percent", MinMarginPercent, MaxMarginPercent))
	}
	return nil
}
