package crypt4gh

import (
	"encoding/binary"
	"fmt"
)

// Unseal decrypts every packet in h using owner's key pair, populating
// h.DataKey and h.HasEditList. It fails if any packet cannot be opened
// with owner's key, if a data-encryption-parameters packet uses an
// encryption method this package does not support, or if the header has
// no data-encryption-parameters packet at all.
func (h *Header) Unseal(owner KeyPair) error {
	found := false
	for _, raw := range h.Packets {
		body := raw[4:]
		plaintext, err := openPacket(owner, body)
		if err != nil {
			return fmt.Errorf("unsealing packet: %v", err)
		}
		if len(plaintext) < 4 {
			return fmt.Errorf("packet content too short")
		}
		packetType := binary.LittleEndian.Uint32(plaintext[:4])
		switch packetType {
		case packetTypeDataEncryptionParameters:
			dek, err := parseDataEncryptionParameters(plaintext)
			if err != nil {
				return err
			}
			h.DataKey = dek
			found = true
		case packetTypeEditList:
			h.HasEditList = true
		default:
			// Unknown packet types are ignored; Rewrap does not carry them
			// into the new header.
		}
	}
	if !found {
		return fmt.Errorf("no data-encryption-parameters packet found")
	}
	return nil
}

func parseDataEncryptionParameters(plaintext []byte) ([32]byte, error) {
	var key [32]byte
	if len(plaintext) < 8 {
		return key, fmt.Errorf("data-encryption-parameters packet too short")
	}
	method := binary.LittleEndian.Uint32(plaintext[4:8])
	if method != encryptionMethodChaCha20Poly1305 {
		return key, fmt.Errorf("unsupported data encryption method %d", method)
	}
	if len(plaintext) < 8+32 {
		return key, fmt.Errorf("data-encryption-parameters packet missing key")
	}
	copy(key[:], plaintext[8:40])
	return key, nil
}

// encodeDataEncryptionParameters builds the plaintext body of a
// data-encryption-parameters packet carrying dataKey.
func encodeDataEncryptionParameters(dataKey [32]byte) []byte {
	buf := make([]byte, 8+32)
	binary.LittleEndian.PutUint32(buf[0:4], packetTypeDataEncryptionParameters)
	binary.LittleEndian.PutUint32(buf[4:8], encryptionMethodChaCha20Poly1305)
	copy(buf[8:], dataKey[:])
	return buf
}

// EditList is a sequence of alternating discard/keep byte counts over the
// decrypted output stream (spec.md's GLOSSARY "Edit list (C4GH)").
type EditList []uint64

// encode builds the plaintext body of an edit-list packet.
func (e EditList) encode() []byte {
	buf := make([]byte, 4+8+8*len(e))
	binary.LittleEndian.PutUint32(buf[0:4], packetTypeEditList)
	binary.LittleEndian.PutUint64(buf[4:12], uint64(len(e)))
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[12+8*i:20+8*i], v)
	}
	return buf
}
