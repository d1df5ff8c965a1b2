package adb

import "zapp/internal/remote"

// Android input keyevent codes
const (
	keycodeHome        = 3
	keycodeBack        = 4
	keycodeNum0        = 7
	keycodeDpadUp      = 19
	keycodeDpadDown    = 20
	keycodeDpadLeft    = 21
	keycodeDpadRight   = 22
	keycodeDpadCenter  = 23
	keycodeVolumeUp    = 24
	keycodeVolumeDown  = 25
	keycodePower       = 26
	keycodeTab         = 61
	keycodeEnter       = 66
	keycodeDel         = 67
	keycodeMenu        = 82
	keycodeMediaStop   = 86
	keycodeRewind      = 89
	keycodeFastForward = 90
	keycodeEscape      = 111
	keycodePlay        = 126
	keycodePause       = 127
	keycodeMute        = 164
	keycodeChannelUp   = 166
	keycodeChannelDown = 167
	keycodeTVInput     = 178
	keycodeSleep       = 223
	keycodeWakeup      = 224
)

// keyMap translates abstract remote keys to Android keyevent codes
var keyMap = map[remote.Key]int{
	remote.KeyPower:       keycodePower,
	remote.KeyPowerOn:     keycodeWakeup,
	remote.KeyPowerOff:    keycodeSleep,
	remote.KeyVolumeUp:    keycodeVolumeUp,
	remote.KeyVolumeDown:  keycodeVolumeDown,
	remote.KeyMute:        keycodeMute,
	remote.KeyChannelUp:   keycodeChannelUp,
	remote.KeyChannelDown: keycodeChannelDown,
	remote.KeyUp:          keycodeDpadUp,
	remote.KeyDown:        keycodeDpadDown,
	remote.KeyLeft:        keycodeDpadLeft,
	remote.KeyRight:       keycodeDpadRight,
	remote.KeyOK:          keycodeDpadCenter,
	remote.KeyHome:        keycodeHome,
	remote.KeyMenu:        keycodeMenu,
	remote.KeyBack:        keycodeBack,
	remote.KeyInput:       keycodeTVInput,
	remote.KeyPlay:        keycodePlay,
	remote.KeyPause:       keycodePause,
	remote.KeyStop:        keycodeMediaStop,
	remote.KeyRewind:      keycodeRewind,
	remote.KeyFastForward: keycodeFastForward,
	remote.KeyNum0:        keycodeNum0,
	remote.KeyNum1:        keycodeNum0 + 1,
	remote.KeyNum2:        keycodeNum0 + 2,
	remote.KeyNum3:        keycodeNum0 + 3,
	remote.KeyNum4:        keycodeNum0 + 4,
	remote.KeyNum5:        keycodeNum0 + 5,
	remote.KeyNum6:        keycodeNum0 + 6,
	remote.KeyNum7:        keycodeNum0 + 7,
	remote.KeyNum8:        keycodeNum0 + 8,
	remote.KeyNum9:        keycodeNum0 + 9,
}

// Capabilities describes what the ADB adapter supports
func Capabilities() remote.Capabilities {
	keys := make([]remote.Key, 0, len(keyMap))
	for k := range keyMap {
		keys = append(keys, k)
	}
	return remote.Capabilities{
		Keys:      keys,
		TextInput: true,
		WakeOnLAN: false,
		PINEntry:  false,
		CodeEntry: false,
	}
}

// KeyCode returns the Android keyevent code for an abstract key
func KeyCode(key remote.Key) (int, bool) {
	code, ok := keyMap[key]
	return code, ok
}
