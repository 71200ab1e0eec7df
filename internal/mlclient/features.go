package mlclient

import "NetSentinel/internal/model"

// FeatureCount is the length of the vector produced by Features. The order
// and length are part of the contract with the serving collaborator; changing
// either requires retraining.
const FeatureCount = 10

// Features projects an observation and its flow-state snapshot into the
// feature vector the external model expects. The projection is deterministic:
// the same inputs always produce the same vector.
func Features(obs *model.FlowObservation, snap model.FlowStateSnapshot) []float64 {
	return []float64{
		obs.Duration.Seconds(),
		protocolFeature(obs.Protocol),
		float64(obs.SrcPort) / 65536.0,
		float64(obs.DstPort) / 65536.0,
		float64(obs.PacketSize),
		float64(obs.TCPFlags),
		snap.ConnectionRate,
		float64(snap.UniquePorts),
		float64(snap.FailedAttempts),
		float64(snap.TotalConnections),
	}
}

// protocolFeature uses the model's training-time protocol encoding.
func protocolFeature(protocol uint8) float64 {
	switch protocol {
	case model.ProtoTCP:
		return 0
	case model.ProtoUDP:
		return 1
	case model.ProtoICMP:
		return 2
	default:
		return 0
	}
}
