package tizen

import "zapp/internal/remote"

// keyMap translates abstract keys to Samsung remote key codes
var keyMap = map[remote.Key]string{
	remote.KeyPower:       "KEY_POWER",
	remote.KeyPowerOff:    "KEY_POWER",
	remote.KeyUp:          "KEY_UP",
	remote.KeyDown:        "KEY_DOWN",
	remote.KeyLeft:        "KEY_LEFT",
	remote.KeyRight:       "KEY_RIGHT",
	remote.KeyOK:          "KEY_ENTER",
	remote.KeyBack:        "KEY_RETURN",
	remote.KeyHome:        "KEY_HOME",
	remote.KeyMenu:        "KEY_MENU",
	remote.KeyVolumeUp:    "KEY_VOLUP",
	remote.KeyVolumeDown:  "KEY_VOLDOWN",
	remote.KeyMute:        "KEY_MUTE",
	remote.KeyChannelUp:   "KEY_CHUP",
	remote.KeyChannelDown: "KEY_CHDOWN",
	remote.KeyPlay:        "KEY_PLAY",
	remote.KeyPause:       "KEY_PAUSE",
	remote.KeyStop:        "KEY_STOP",
	remote.KeyRewind:      "KEY_REWIND",
	remote.KeyFastForward: "KEY_FF",
	remote.KeyInput:       "KEY_SOURCE",
	remote.KeyNum0:        "KEY_0",
	remote.KeyNum1:        "KEY_1",
	remote.KeyNum2:        "KEY_2",
	remote.KeyNum3:        "KEY_3",
	remote.KeyNum4:        "KEY_4",
	remote.KeyNum5:        "KEY_5",
	remote.KeyNum6:        "KEY_6",
	remote.KeyNum7:        "KEY_7",
	remote.KeyNum8:        "KEY_8",
	remote.KeyNum9:        "KEY_9",
}

// Capabilities describes what the Tizen adapter supports
func Capabilities() remote.Capabilities {
	keys := make([]remote.Key, 0, len(keyMap))
	for k := range keyMap {
		keys = append(keys, k)
	}
	return remote.Capabilities{
		Keys:      keys,
		TextInput: true,
		WakeOnLAN: true,
		PINEntry:  false,
		CodeEntry: false,
	}
}
