package model

// SeparatorCode marks the visual divider between priority countries and the
// alphabetical remainder. It is never selectable.
const SeparatorCode = "---"

// Country is one entry of the country catalog.
type Country struct {
	Code       string `json:"code" yaml:"code"`
	Name       string `json:"name" yaml:"name"`
	NativeName string `json:"native_name,omitempty" yaml:"native_name,omitempty"`
	Flag       string `json:"flag,omitempty" yaml:"flag,omitempty"`
}

// Separator returns the divider entry.
func Separator() Country {
	return Country{Code: SeparatorCode, Name: "──────────"}
}

// Selectable reports whether the entry can be chosen by a user.
func (c Country) Selectable() bool {
	return c.Code != "" && c.Code != SeparatorCode
}
