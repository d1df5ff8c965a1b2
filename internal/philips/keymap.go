package philips

import "zapp/internal/remote"

// keyMap translates abstract keys to JointSpace input key names
var keyMap = map[remote.Key]string{
	remote.KeyPower:       "Standby",
	remote.KeyPowerOff:    "Standby",
	remote.KeyUp:          "CursorUp",
	remote.KeyDown:        "CursorDown",
	remote.KeyLeft:        "CursorLeft",
	remote.KeyRight:       "CursorRight",
	remote.KeyOK:          "Confirm",
	remote.KeyBack:        "Back",
	remote.KeyHome:        "Home",
	remote.KeyMenu:        "Options",
	remote.KeyVolumeUp:    "VolumeUp",
	remote.KeyVolumeDown:  "VolumeDown",
	remote.KeyMute:        "Mute",
	remote.KeyChannelUp:   "ChannelStepUp",
	remote.KeyChannelDown: "ChannelStepDown",
	remote.KeyPlay:        "PlayPause",
	remote.KeyPause:       "Pause",
	remote.KeyStop:        "Stop",
	remote.KeyRewind:      "Rewind",
	remote.KeyFastForward: "FastForward",
	remote.KeyInput:       "Source",
	remote.KeyNum0:        "Digit0",
	remote.KeyNum1:        "Digit1",
	remote.KeyNum2:        "Digit2",
	remote.KeyNum3:        "Digit3",
	remote.KeyNum4:        "Digit4",
	remote.KeyNum5:        "Digit5",
	remote.KeyNum6:        "Digit6",
	remote.KeyNum7:        "Digit7",
	remote.KeyNum8:        "Digit8",
	remote.KeyNum9:        "Digit9",
}

// Capabilities describes what the Philips adapter supports. The JointSpace
// API has no text-entry endpoint, so text input is off.
func Capabilities() remote.Capabilities {
	keys := make([]remote.Key, 0, len(keyMap))
	for k := range keyMap {
		keys = append(keys, k)
	}
	return remote.Capabilities{
		Keys:      keys,
		TextInput: false,
		WakeOnLAN: true,
		PINEntry:  true,
		CodeEntry: false,
	}
}
