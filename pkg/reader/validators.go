package reader

import "github.com/shishobooks/folio/pkg/settings"

type ReadQuery struct {
	Page    int `query:"page" json:"page" validate:"gte=0"`
	Chapter int `query:"chapter" json:"chapter" validate:"gte=0"`
}

// RestylePayload previews a style on a live book without saving it. Empty
// fields keep the saved preference.
type RestylePayload struct {
	Theme         string  `json:"theme,omitempty" mod:"trim" validate:"omitempty,theme"`
	FontFamily    string  `json:"font_family,omitempty" mod:"trim" validate:"omitempty,font_family"`
	FontSizePx    int     `json:"font_size_px,omitempty" validate:"omitempty,gte=12,lte=28"`
	LineHeight    float64 `json:"line_height,omitempty" validate:"omitempty,gte=1.2,lte=2"`
	MarginPercent int     `json:"margin_percent,omitempty" validate:"omitempty,gte=5,lte=15"`
}

func (p RestylePayload) apply(theme string, typo settings.TypographySettings) (string, settings.TypographySettings) {
	if p.Theme != "" {
		theme = p.Theme
	}
	if p.FontFamily != "" {
		typo.FontFamily = p.FontFamily
	}
	if p.FontSizePx != 0 {
		typo.FontSizePx = p.FontSizePx
	}
	if p.LineHeight != 0 {
		typo.LineHeight = p.LineHeight
	}
	if p.MarginPercent != 0 {
		typo.MarginPercent = p.MarginPercent
	}
	return theme, typo
}
