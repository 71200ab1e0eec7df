package capture

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"NetSentinel/internal/model"
)

// ParsePacket decodes a captured packet into a FlowObservation. Non-IPv4
// packets and transports other than TCP/UDP/ICMP are rejected; callers are
// expected to skip them.
func ParsePacket(packet gopacket.Packet) (*model.FlowObservation, error) {
	obs := &model.FlowObservation{
		Timestamp: time.Now(),
	}
	if meta := packet.Metadata(); meta != nil {
		if !meta.Timestamp.IsZero() {
			obs.Timestamp = meta.Timestamp
		}
		obs.PacketSize = meta.Length
	}
	if obs.PacketSize == 0 {
		obs.PacketSize = len(packet.Data())
	}

	ipLayer := packet.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return nil, fmt.Errorf("not an IPv4 packet")
	}
	ip := ipLayer.(*layers.IPv4)
	obs.SrcIP = ip.SrcIP
	obs.DstIP = ip.DstIP
	obs.Protocol = uint8(ip.Protocol)

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		obs.SrcPort = uint16(tcp.SrcPort)
		obs.DstPort = uint16(tcp.DstPort)
		obs.TCPFlags = tcpFlags(tcp)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		obs.SrcPort = uint16(udp.SrcPort)
		obs.DstPort = uint16(udp.DstPort)
	} else if packet.Layer(layers.LayerTypeICMPv4) == nil {
		return nil, fmt.Errorf("not a TCP, UDP or ICMP packet")
	}

	return obs, nil
}

func tcpFlags(tcp *layers.TCP) uint8 {
	var flags uint8
	if tcp.FIN {
		flags |= model.FlagFIN
	}
	if tcp.SYN {
		flags |= model.FlagSYN
	}
	if tcp.RST {
		flags |= model.FlagRST
	}
	if tcp.PSH {
		flags |= model.FlagPSH
	}
	if tcp.ACK {
		flags |= model.FlagACK
	}
	if tcp.URG {
		flags |= model.FlagURG
	}
	return flags
}
