package session

import (
	"fmt"

	"zapp/internal/adb"
	"zapp/internal/atvremote"
	"zapp/internal/philips"
	"zapp/internal/remote"
	"zapp/internal/tizen"
	"zapp/internal/webos"
)

// Actors bundles the platform-specific pairer and transport constructors a
// session drives, plus the platform's capability descriptor
type Actors struct {
	NewPairer    func(dev remote.Device, sink remote.PairingSink) remote.Pairer
	NewTransport func(dev remote.Device, sink remote.TransportSink) remote.Transport
	Capabilities remote.Capabilities

	// Forget discards any host-side credential material for the device,
	// such as the WebOS key file. Nil when the platform keeps none.
	Forget func(dev remote.Device)
}

// ActorConfig carries host-side settings the adapters need
type ActorConfig struct {
	// ADBPath is the adb executable; empty means resolve from PATH
	ADBPath string
	// KeyDir overrides the WebOS key-file directory
	KeyDir string
}

// ActorsFor builds the actor set for a platform
func ActorsFor(platform remote.Platform, cfg ActorConfig) (Actors, error) {
	adbPath := cfg.ADBPath
	if adbPath == "" {
		adbPath = "adb"
	}

	switch platform {
	case remote.PlatformAndroidTV:
		return Actors{
			NewPairer: func(dev remote.Device, sink remote.PairingSink) remote.Pairer {
				return adb.NewPairer(adbPath, dev.IP, sink)
			},
			NewTransport: func(dev remote.Device, sink remote.TransportSink) remote.Transport {
				return adb.NewTransport(adbPath, dev.IP, sink)
			},
			Capabilities: adb.Capabilities(),
		}, nil

	case remote.PlatformAndroidTVRemote:
		// Pairing uses the hex-code channel; session traffic still goes
		// over ADB once the TV trusts the client
		caps := adb.Capabilities()
		caps.CodeEntry = true
		return Actors{
			NewPairer: func(dev remote.Device, sink remote.PairingSink) remote.Pairer {
				return atvremote.NewPairer(dev.IP, sink)
			},
			NewTransport: func(dev remote.Device, sink remote.TransportSink) remote.Transport {
				return adb.NewTransport(adbPath, dev.IP, sink)
			},
			Capabilities: caps,
		}, nil

	case remote.PlatformWebOS:
		store, err := webos.NewKeyStore(cfg.KeyDir)
		if err != nil {
			return Actors{}, fmt.Errorf("webos key store: %w", err)
		}
		return Actors{
			NewPairer: func(dev remote.Device, sink remote.PairingSink) remote.Pairer {
				return webos.NewPairer(dev, store, sink)
			},
			NewTransport: func(dev remote.Device, sink remote.TransportSink) remote.Transport {
				return webos.NewTransport(dev, store, sink)
			},
			Capabilities: webos.Capabilities(),
			Forget: func(dev remote.Device) {
				store.Delete(dev.IP, dev.MAC)
			},
		}, nil

	case remote.PlatformPhilips:
		return Actors{
			NewPairer: func(dev remote.Device, sink remote.PairingSink) remote.Pairer {
				return philips.NewPairer(dev.IP, sink)
			},
			NewTransport: func(dev remote.Device, sink remote.TransportSink) remote.Transport {
				return philips.NewTransport(dev, sink)
			},
			Capabilities: philips.Capabilities(),
		}, nil

	case remote.PlatformTizen:
		return Actors{
			NewPairer: func(dev remote.Device, sink remote.PairingSink) remote.Pairer {
				return tizen.NewPairer(dev, sink)
			},
			NewTransport: func(dev remote.Device, sink remote.TransportSink) remote.Transport {
				return tizen.NewTransport(dev, sink)
			},
			Capabilities: tizen.Capabilities(),
		}, nil

	default:
		return Actors{}, fmt.Errorf("platform %q is not supported", platform)
	}
}
