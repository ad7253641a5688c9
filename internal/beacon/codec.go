// Package beacon encodes attendance sessions into the two small integers a BLE
// advertisement can carry, and maps organization slugs to beacon org codes.
package beacon

// ProtocolUUID identifies this protocol's advertisements among ambient radio
// traffic. A single fixed constant shared by every deployment; never per-org
// or per-session.
const ProtocolUUID = "8ec76ea3-6668-48da-9866-75be8bc86f4d"

// UnknownOrgCode is the sentinel for organizations missing from the registry:
// "do not trust". It is never assigned to a real organization.
const UnknownOrgCode uint16 = 0

// ID is the pair of beacon identifier fields: the advertisement's major field
// carries the org code and the minor field carries the token hash.
type ID struct {
	OrgCode   uint16
	TokenHash uint16
}

// Hash maps a session token onto the beacon's 16-bit minor field:
// acc = ((acc<<5) - acc + charCode) & 0xFFFF per character, i.e. acc*31 + c
// mod 65536. Deterministic across implementations doing the same integer
// arithmetic. There is deliberately no inverse: matching recomputes the hash
// from candidate tokens. With only 65536 values the hash is a pre-filter, not
// an authority; confirmation always goes through the session store.
func Hash(token string) uint16 {
	var acc uint16
	for i := 0; i < len(token); i++ {
		acc = (acc << 5) - acc + uint16(token[i])
	}
	return acc
}

// Encode computes the beacon identifier for a token broadcast by the
// organization with the given code.
func Encode(orgCode uint16, token string) ID {
	return ID{OrgCode: orgCode, TokenHash: Hash(token)}
}

// Matches reports whether a candidate session token would produce this
// beacon's token hash.
func (id ID) Matches(token string) bool {
	return Hash(token) == id.TokenHash
}
