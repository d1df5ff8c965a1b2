package remote

// Key represents an abstract remote-control key, independent of vendor encoding
type Key string

const (
	KeyPower       Key = "power"
	KeyPowerOn     Key = "power_on"
	KeyPowerOff    Key = "power_off"
	KeyVolumeUp    Key = "volume_up"
	KeyVolumeDown  Key = "volume_down"
	KeyMute        Key = "mute"
	KeyChannelUp   Key = "channel_up"
	KeyChannelDown Key = "channel_down"
	KeyUp          Key = "up"
	KeyDown        Key = "down"
	KeyLeft        Key = "left"
	KeyRight       Key = "right"
	KeyOK          Key = "ok"
	KeyHome        Key = "home"
	KeyMenu        Key = "menu"
	KeyBack        Key = "back"
	KeyInput       Key = "input"
	KeyPlay        Key = "play"
	KeyPause       Key = "pause"
	KeyStop        Key = "stop"
	KeyRewind      Key = "rewind"
	KeyFastForward Key = "fast_forward"
	KeyNum0        Key = "num_0"
	KeyNum1        Key = "num_1"
	KeyNum2        Key = "num_2"
	KeyNum3        Key = "num_3"
	KeyNum4        Key = "num_4"
	KeyNum5        Key = "num_5"
	KeyNum6        Key = "num_6"
	KeyNum7        Key = "num_7"
	KeyNum8        Key = "num_8"
	KeyNum9        Key = "num_9"
)

// Capabilities describes what a vendor adapter supports. The session machine
// forwards keys verbatim; callers consult this before sending.
type Capabilities struct {
	Keys      []Key `json:"keys"`
	TextInput bool  `json:"text_input"`
	WakeOnLAN bool  `json:"wake_on_lan"`
	PINEntry  bool  `json:"pin_entry"`
	CodeEntry bool  `json:"code_entry"`
}

// SupportsKey reports whether the capability set includes the given key
func (c Capabilities) SupportsKey(key Key) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}
