package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDiscardsPartialVariants(t *testing.T) {
	tests := []struct {
		name  string
		creds *Credentials
		want  bool // something survives normalization
	}{
		{"nil", nil, false},
		{"empty", &Credentials{}, false},
		{"webos missing key", &Credentials{WebOS: &WebOSCredentials{}}, false},
		{"webos complete", &Credentials{WebOS: &WebOSCredentials{ClientKey: "abc"}}, true},
		{"philips missing auth key", &Credentials{Philips: &PhilipsCredentials{DeviceID: "dev"}}, false},
		{"philips missing device id", &Credentials{Philips: &PhilipsCredentials{AuthKey: "key"}}, false},
		{"philips complete", &Credentials{Philips: &PhilipsCredentials{DeviceID: "dev", AuthKey: "key"}}, true},
		{"tizen empty token", &Credentials{Tizen: &TizenCredentials{MAC: "aa:bb:cc:dd:ee:ff"}}, false},
		{"tizen complete", &Credentials{Tizen: &TizenCredentials{Token: "tok"}}, true},
		{"atv remote empty secret", &Credentials{AndroidTVRemote: &AndroidTVRemoteCredentials{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.creds.Normalize()
			if tt.want {
				assert.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestNormalizeKeepsValidDropsInvalid(t *testing.T) {
	creds := &Credentials{
		WebOS:   &WebOSCredentials{ClientKey: "abc"},
		Philips: &PhilipsCredentials{DeviceID: "dev"}, // incomplete
	}
	got := creds.Normalize()
	assert.NotNil(t, got.WebOS)
	assert.Nil(t, got.Philips)
}

func TestValidFor(t *testing.T) {
	t.Run("adb never needs a secret", func(t *testing.T) {
		assert.True(t, (*Credentials)(nil).ValidFor(PlatformAndroidTV))
		assert.True(t, (&Credentials{}).ValidFor(PlatformAndroidTV))
	})

	t.Run("other platforms need their variant", func(t *testing.T) {
		creds := &Credentials{WebOS: &WebOSCredentials{ClientKey: "abc"}}
		assert.True(t, creds.ValidFor(PlatformWebOS))
		assert.False(t, creds.ValidFor(PlatformTizen))
		assert.False(t, (*Credentials)(nil).ValidFor(PlatformWebOS))
	})

	t.Run("unimplemented platform", func(t *testing.T) {
		assert.False(t, (&Credentials{}).ValidFor(PlatformRoku))
	})
}
