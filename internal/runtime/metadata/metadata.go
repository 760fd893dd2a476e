package metadata

import "github.com/sylin-org/relay/bus"

// Metadata represents the headers carried alongside a message.
type Metadata map[string]string

// Standard keys stamped by the runtime.
const (
	// KeyEnqueuedAt is the RFC3339Nano timestamp a message entered the buffer.
	KeyEnqueuedAt = "relay_enqueued_at"

	// KeyBuffered marks a message that was held in the buffer before go-live.
	KeyBuffered = "relay_buffered"
)

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a cloned metadata map containing the supplied entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

// ToBus converts the metadata into the bus-level representation.
func ToBus(m Metadata) bus.Metadata {
	if len(m) == 0 {
		return bus.Metadata{}
	}
	converted := make(bus.Metadata, len(m))
	for k, v := range m {
		converted[k] = v
	}
	return converted
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
