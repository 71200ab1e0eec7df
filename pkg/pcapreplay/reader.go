package pcapreplay

import (
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"NetSentinel/internal/capture"
	"NetSentinel/internal/model"
)

// Reader replays flow observations from a pcap file, for offline analysis
// and for feeding the engine from a test harness.
type Reader struct {
	handle *pcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadObservations parses all packets from the pcap file and sends the
// resulting observations to the provided channel. It closes the channel when
// done. Unsupported packet types are logged and skipped.
func (r *Reader) ReadObservations(out chan<- *model.FlowObservation) {
	defer close(out)

	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range packetSource.Packets() {
		obs, err := capture.ParsePacket(packet)
		if err != nil {
			log.Printf("Error parsing packet: %v", err)
			continue
		}
		out <- obs
	}
}
