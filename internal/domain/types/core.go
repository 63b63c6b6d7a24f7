package types

// Identity names a user in the directory. It is unique there and immutable
// for the lifetime of a session.
type Identity string

// String returns the string form of the identity.
func (i Identity) String() string { return string(i) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// KeyID identifies a recipient public key inside an encrypted envelope.
type KeyID [8]byte

// LookupResult maps identities to their published public keys.
type LookupResult map[Identity]PublicKey

// Keys returns the public keys of the result in no particular order.
func (r LookupResult) Keys() []PublicKey {
	out := make([]PublicKey, 0, len(r))
	for _, k := range r {
		out = append(out, k)
	}
	return out
}

// KeyState is the derived lifecycle state of an identity's key material.
type KeyState int

const (
	// StateUnregistered means no directory record exists.
	StateUnregistered KeyState = iota
	// StateRegistered means one record exists and the local key is present.
	StateRegistered
	// StateKeyLost means one record exists but the local key is absent.
	StateKeyLost
)

func (s KeyState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateKeyLost:
		return "key-lost"
	default:
		return "unknown"
	}
}
