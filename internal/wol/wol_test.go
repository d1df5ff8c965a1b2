package wol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMAC(t *testing.T) {
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NormalizeMAC("AA:BB:CC:DD:EE:FF"))
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", NormalizeMAC("AA-BB-CC-DD-EE-FF"))
}

func TestPacket(t *testing.T) {
	packet, err := Packet("AA:BB:CC:DD:EE:FF")
	require.NoError(t, err)

	require.Len(t, packet, 102)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), packet[:6])

	mac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for i := 0; i < 16; i++ {
		start := 6 + i*6
		assert.Equal(t, mac, packet[start:start+6], "repetition %d", i)
	}
}

func TestPacketRejectsBadMAC(t *testing.T) {
	_, err := Packet("not-a-mac")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MAC address")

	_, err = Packet("")
	require.Error(t, err)
}
