package webos

import "zapp/internal/remote"

// SSAP URIs used by the key map
const (
	uriVolumeUp    = "ssap://audio/volumeUp"
	uriVolumeDown  = "ssap://audio/volumeDown"
	uriSetMute     = "ssap://audio/setMute"
	uriChannelUp   = "ssap://tv/channelUp"
	uriChannelDown = "ssap://tv/channelDown"
	uriTurnOff     = "ssap://system/turnOff"
	uriPlay        = "ssap://media.controls/play"
	uriPause       = "ssap://media.controls/pause"
	uriStop        = "ssap://media.controls/stop"
	uriRewind      = "ssap://media.controls/rewind"
	uriFastForward = "ssap://media.controls/fastForward"
	uriLaunch      = "ssap://system.launcher/launch"

	uriInsertText    = "ssap://com.webos.service.ime/insertText"
	uriDeleteChars   = "ssap://com.webos.service.ime/deleteCharacters"
	uriSendEnter     = "ssap://com.webos.service.ime/sendEnterKey"
	uriPointerSocket = "ssap://com.webos.service.networkinput/getPointerInputSocket"
	uriPowerState    = "ssap://com.webos.service.tvpower/power/getPowerState"

	inputPickerAppID = "com.webos.app.inputpicker"
)

// keyAction describes how one abstract key reaches the TV: either an SSAP
// request on the main socket, or a button frame on the pointer input socket.
// Mute is special - the TV only exposes a set-call, so the adapter tracks
// the toggle state client-side.
type keyAction struct {
	uri        string
	payload    map[string]interface{}
	button     string
	toggleMute bool
}

var keyMap = map[remote.Key]keyAction{
	remote.KeyPower:       {uri: uriTurnOff},
	remote.KeyPowerOff:    {uri: uriTurnOff},
	remote.KeyVolumeUp:    {uri: uriVolumeUp},
	remote.KeyVolumeDown:  {uri: uriVolumeDown},
	remote.KeyMute:        {toggleMute: true},
	remote.KeyChannelUp:   {uri: uriChannelUp},
	remote.KeyChannelDown: {uri: uriChannelDown},
	remote.KeyPlay:        {uri: uriPlay},
	remote.KeyPause:       {uri: uriPause},
	remote.KeyStop:        {uri: uriStop},
	remote.KeyRewind:      {uri: uriRewind},
	remote.KeyFastForward: {uri: uriFastForward},
	remote.KeyInput:       {uri: uriLaunch, payload: map[string]interface{}{"id": inputPickerAppID}},

	// Directional and navigation keys go over the pointer input socket
	remote.KeyUp:    {button: "UP"},
	remote.KeyDown:  {button: "DOWN"},
	remote.KeyLeft:  {button: "LEFT"},
	remote.KeyRight: {button: "RIGHT"},
	remote.KeyOK:    {button: "ENTER"},
	remote.KeyHome:  {button: "HOME"},
	remote.KeyMenu:  {button: "MENU"},
	remote.KeyBack:  {button: "BACK"},
	remote.KeyNum0:  {button: "0"},
	remote.KeyNum1:  {button: "1"},
	remote.KeyNum2:  {button: "2"},
	remote.KeyNum3:  {button: "3"},
	remote.KeyNum4:  {button: "4"},
	remote.KeyNum5:  {button: "5"},
	remote.KeyNum6:  {button: "6"},
	remote.KeyNum7:  {button: "7"},
	remote.KeyNum8:  {button: "8"},
	remote.KeyNum9:  {button: "9"},
}

// Capabilities describes what the WebOS adapter supports
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
