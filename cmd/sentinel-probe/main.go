package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/nats-io/nats.go"

	"NetSentinel/internal/capture"
	"NetSentinel/internal/model"
	"NetSentinel/internal/probe"
	"NetSentinel/pkg/pcapreplay"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	mode := flag.String("mode", "live", "Operating mode: 'live' to capture and publish, 'replay' to publish from a pcap file, 'sub' to subscribe and print.")
	iface := flag.String("iface", "", "Interface to capture packets from (required for live mode).")
	pcapFile := flag.String("pcap", "", "Path to a pcap file (required for replay mode).")
	natsURL := flag.String("nats-url", nats.DefaultURL, "NATS server URL.")
	subject := flag.String("subject", "sentinel.observations", "NATS subject for flow observations.")
	flag.Parse()

	switch *mode {
	case "live":
		runLive(*iface, *natsURL, *subject)
	case "replay":
		runReplay(*pcapFile, *natsURL, *subject)
	case "sub":
		runSubscriber(*natsURL, *subject)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runLive captures packets from an interface and publishes the parsed
// observations to NATS.
func runLive(interfaceName, natsURL, subject string) {
	if interfaceName == "" {
		log.Println("Error: -iface flag is required for live mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting sentinel-probe in LIVE mode on interface: %s", interfaceName)

	pub, err := probe.NewPublisher(natsURL, subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", interfaceName, err)
	}
	defer handle.Close()

	log.Println("Capture started successfully. Publishing observations to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		published := 0
		for packet := range packetSource.Packets() {
			obs, err := capture.ParsePacket(packet)
			if err != nil {
				continue // Skip non-IP packets
			}
			if err := pub.Publish(obs); err != nil {
				log.Printf("Failed to publish observation: %v", err)
			}
			published++
			if published%1000 == 0 {
				log.Printf("%d observations published...", published)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}

// runReplay publishes the observations parsed from a pcap file, then exits.
func runReplay(path, natsURL, subject string) {
	if path == "" {
		log.Println("Error: -pcap flag is required for replay mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting sentinel-probe in REPLAY mode from file: %s", path)

	pub, err := probe.NewPublisher(natsURL, subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	reader, err := pcapreplay.NewReader(path)
	if err != nil {
		log.Fatalf("Failed to open pcap file: %v", err)
	}
	defer reader.Close()

	out := make(chan *model.FlowObservation, 1000)
	go reader.ReadObservations(out)

	published := 0
	for obs := range out {
		if err := pub.Publish(obs); err != nil {
			log.Printf("Failed to publish observation: %v", err)
		}
		published++
	}
	log.Printf("Replay complete, %d observations published.", published)
}

// runSubscriber subscribes to the observation subject and prints what arrives.
func runSubscriber(natsURL, subject string) {
	log.Println("Starting sentinel-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(natsURL, subject)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(obs *model.FlowObservation) {
		log.Printf("Received observation: %+v", obs)
	}

	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
