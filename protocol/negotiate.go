package protocol

// Version is the protocol version the client speaks. A server advertising a
// different version during negotiation is rejected.
const Version uint8 = 1

// --------------------------------------------------------------------------
// Feature Negotiation
// --------------------------------------------------------------------------

// Feature is an optional protocol capability negotiated per connection.
type Feature uint8

const (
	FeatureCompression Feature = iota + 1
	FeatureHeartbeat
	FeatureStreaming
)

// String returns the string representation of a Feature.
func (f Feature) String() string {
	switch f {
	case FeatureCompression:
		return "compression"
	case FeatureHeartbeat:
		return "heartbeat"
	case FeatureStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// FeatureSet is an immutable bit set of negotiated features. It is computed
// once at connection establishment and attached to the connection.
type FeatureSet uint8

// NewFeatureSet builds a set from the given features.
func NewFeatureSet(features ...Feature) FeatureSet {
	var s FeatureSet
	for _, f := range features {
		s |= 1 << f
	}
	return s
}

// Has reports whether the feature is part of the set.
func (s FeatureSet) Has(f Feature) bool {
	return s&(1<<f) != 0
}

// Intersect returns the features present in both sets.
func (s FeatureSet) Intersect(other FeatureSet) FeatureSet {
	return s & other
}

// Features lists the members of the set.
func (s FeatureSet) Features() []Feature {
	var out []Feature
	for _, f := range []Feature{FeatureCompression, FeatureHeartbeat, FeatureStreaming} {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// FeatureNegotiation is the payload exchanged right after connect. The
// client sends its supported sets, the server answers with its own; the
// connection keeps the intersection.
type FeatureNegotiation struct {
	Version    uint8       `cbor:"version"`
	Features   []Feature   `cbor:"features"`
	Transports []Transport `cbor:"transports"`
}

// --------------------------------------------------------------------------
// Transport Negotiation
// --------------------------------------------------------------------------

// Transport is a wire transport the client or server can speak.
type Transport uint8

const (
	TransportUDP Transport = iota + 1
	TransportTCP
	TransportTLS
)

// Priority returns the selection priority of the transport, higher wins.
// The order is fixed: TLS > TCP > UDP.
func (t Transport) Priority() uint8 {
	switch t {
	case TransportTLS:
		return 3
	case TransportTCP:
		return 2
	case TransportUDP:
		return 1
	default:
		return 0
	}
}

// String returns the string representation of a Transport.
func (t Transport) String() string {
	switch t {
	case TransportTLS:
		return "tls"
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// SelectTransport picks the highest-priority transport present in both the
// client's and the server's supported sets. ok is false when the sets do
// not overlap.
func SelectTransport(client, server []Transport) (best Transport, ok bool) {
	for _, c := range client {
		found := false
		for _, s := range server {
			if s == c {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		if !ok || c.Priority() > best.Priority() {
			best, ok = c, true
		}
	}
	return best, ok
}
