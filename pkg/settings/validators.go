package settings

type PreferencesPayload struct {
	Theme      string             `json:"theme" mod:"trim" validate:"theme"`
	Typography TypographySettings `json:"typography"`
}
