package models

import "strings"

// Platform is the product line a project lives on.
type Platform int

const (
	PlatformUndetermined Platform = iota
	PlatformBIM360
	PlatformACC
)

// ParsePlatform is case-insensitive; anything unknown is undetermined.
func ParsePlatform(s string) Platform {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bim360":
		return PlatformBIM360
	case "acc":
		return PlatformACC
	default:
		return PlatformUndetermined
	}
}

func (p Platform) String() string {
	switch p {
	case PlatformBIM360:
		return "bim360"
	case PlatformACC:
		return "acc"
	default:
		return "undetermined"
	}
}

func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Platform) UnmarshalText(text []byte) error {
	*p = ParsePlatform(string(text))
	return nil
}
