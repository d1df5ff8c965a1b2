package remote

import "fmt"

// Platform identifies a vendor ecosystem
type Platform string

const (
	PlatformAndroidTV       Platform = "androidtv"
	PlatformAndroidTVRemote Platform = "androidtv_remote"
	PlatformWebOS           Platform = "webos"
	PlatformPhilips         Platform = "philips"
	PlatformTizen           Platform = "tizen"

	// Recognized but not implemented yet
	PlatformVidaa Platform = "vidaa"
	PlatformRoku  Platform = "roku"
)

// Platforms lists every recognized platform
func Platforms() []Platform {
	return []Platform{
		PlatformAndroidTV,
		PlatformAndroidTVRemote,
		PlatformWebOS,
		PlatformPhilips,
		PlatformTizen,
		PlatformVidaa,
		PlatformRoku,
	}
}

// ParsePlatform converts a string to a Platform
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform: %s", s)
}

// Implemented reports whether an adapter exists for the platform
func (p Platform) Implemented() bool {
	switch p {
	case PlatformAndroidTV, PlatformAndroidTVRemote, PlatformWebOS, PlatformPhilips, PlatformTizen:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the platform
func (p Platform) DisplayName() string {
	switch p {
	case PlatformAndroidTV:
		return "Android TV (ADB)"
	case PlatformAndroidTVRemote:
		return "Android TV Remote"
	case PlatformWebOS:
		return "LG WebOS"
	case PlatformPhilips:
		return "Philips"
	case PlatformTizen:
		return "Samsung Tizen"
	case PlatformVidaa:
		return "Hisense VIDAA"
	case PlatformRoku:
		return "Roku"
	default:
		return string(p)
	}
}
