// Package wol sends Wake-on-LAN magic packets to sleeping TVs.
package wol

import (
	"fmt"
	"net"
	"strings"

	"zapp/internal/logger"
)

// NormalizeMAC rewrites a MAC into xx:xx:xx:xx:xx:xx form
func NormalizeMAC(mac string) string {
	return strings.ReplaceAll(strings.ToLower(mac), "-", ":")
}

// Packet builds the magic packet for one MAC: six 0xFF bytes followed by
// sixteen repetitions of the hardware address
func Packet(macAddr string) ([]byte, error) {
	mac, err := net.ParseMAC(NormalizeMAC(macAddr))
	if err != nil {
		return nil, fmt.Errorf("invalid MAC address: %w", err)
	}

	packet := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	for i := 0; i < 16; i++ {
		packet = append(packet, mac...)
	}
	return packet, nil
}

// Wake broadcasts the magic packet on UDP port 9
func Wake(macAddr string) error {
	packet, err := Packet(macAddr)
	if err != nil {
		return err
	}

	addr := &net.UDPAddr{IP: net.IPv4bcast, Port: 9}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to open UDP socket: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("failed to send magic packet: %w", err)
	}

	log := logger.For("wol")
	log.Debug().Str("mac", macAddr).Msg("Magic packet sent")
	return nil
}
