package cardstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Record layout, in file order:
//
//	<identifier, plain ASCII>\n
//	<16-byte block: password LE uint64, balance LE uint64, XOR key stream>
//
// The identifier stays readable for operator inspection. The block carries
// no checksum, so decoding with the wrong key yields a structurally valid
// but semantically wrong account. That behavior is part of the on-disk
// contract and is deliberately not hardened here.

// encodeRecord serializes one account into the on-disk byte layout.
func encodeRecord(account Account, key KeyMaterial) []byte {
	encoded := make([]byte, 0, identifierLength+1+recordBlockLength)
	encoded = append(encoded, account.ID.String()...)
	encoded = append(encoded, recordTerminator)

	block := make([]byte, recordBlockLength)
	binary.LittleEndian.PutUint64(block[:8], uint64(account.Password))
	binary.LittleEndian.PutUint64(block[8:], uint64(account.Balance))
	xorTransform(block, key)

	return append(encoded, block...)
}

// decodeRecord reverses encodeRecord. The XOR transform is self-inverse.
func decodeRecord(raw []byte, key KeyMaterial) (Account, error) {
	terminatorIndex := bytes.IndexByte(raw, recordTerminator)
	if terminatorIndex < 0 {
		return Account{}, fmt.Errorf("%w: identifier line missing", ErrMalformedRecord)
	}
	if terminatorIndex > identifierLength {
		return Account{}, fmt.Errorf("%w: identifier line oversized", ErrMalformedRecord)
	}
	accountID, err := NewAccountID(string(raw[:terminatorIndex]))
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	block := raw[terminatorIndex+1:]
	if len(block) != recordBlockLength {
		return Account{}, fmt.Errorf("%w: binary block holds %d bytes, want %d", ErrMalformedRecord, len(block), recordBlockLength)
	}
	decoded := make([]byte, recordBlockLength)
	copy(decoded, block)
	xorTransform(decoded, key)

	return Account{
		ID:       accountID,
		Password: Password(binary.LittleEndian.Uint64(decoded[:8])),
		Balance:  BalanceCents(binary.LittleEndian.Uint64(decoded[8:])),
	}, nil
}

// xorTransform combines byte i of the block with key byte i mod keyLength.
// Applying it twice restores the input.
func xorTransform(block []byte, key KeyMaterial) {
	for index := range block {
		block[index] ^= key[index%keyLength]
	}
}
