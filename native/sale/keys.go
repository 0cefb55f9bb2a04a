package sale

import (
	"encoding/hex"
	"strconv"
)

var (
	saleKey           = []byte("sale/state")
	roundPrefix       = []byte("sale/round/")
	beneficiaryPrefix = []byte("sale/beneficiary/")
	accountPrefix     = []byte("sale/account/")
)

func roundKey(id int16) []byte {
	suffix := strconv.FormatInt(int64(id), 10)
	buf := make([]byte, len(roundPrefix)+len(suffix))
	copy(buf, roundPrefix)
	copy(buf[len(roundPrefix):], suffix)
	return buf
}

func beneficiaryKey(addr [20]byte) []byte {
	encoded := hex.EncodeToString(addr[:])
	buf := make([]byte, len(beneficiaryPrefix)+len(encoded))
	copy(buf, beneficiaryPrefix)
	copy(buf[len(beneficiaryPrefix):], encoded)
	return buf
}

func accountKey(addr [20]byte) []byte {
	encoded := hex.EncodeToString(addr[:])
	buf := make([]byte, len(accountPrefix)+len(encoded))
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], encoded)
	return buf
}
