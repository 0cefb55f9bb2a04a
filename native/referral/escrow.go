package referral

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var escrowTag = []byte("REFERRAL_ESCROW")

// EscrowAddress derives the program-held escrow account for a referrer. The
// derivation is deterministic over a fixed tag and the referrer key so both
// the deposit path (which pays the referral cut in) and settlement (which
// pays it out) resolve the same address without storing it.
func EscrowAddress(referrer [20]byte) [20]byte {
	buf := make([]byte, 0, len(escrowTag)+1+len(referrer))
	buf = append(buf, escrowTag...)
	buf = append(buf, '_')
	buf = append(buf, referrer[:]...)
	hash := ethcrypto.Keccak256(buf)
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
