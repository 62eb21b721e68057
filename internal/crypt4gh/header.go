// Package crypt4gh implements component G: detecting and re-wrapping a
// Crypt4GH encrypted container so that a ticket for an unencrypted byte
// range [start, end) can be served from the encrypted object, by clamping
// to 64 KiB data-block boundaries and attaching a discard/keep edit list
// to the rewritten header.
package crypt4gh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magicNumber  = "crypt4gh"
	version      = uint32(1)
	magicPrefix  = uint64(8 + 4 + 4) // magic + version + packet count

	// DataBlockPlaintextSize is the amount of plaintext sealed into one
	// Crypt4GH data block (spec.md §4.G).
	DataBlockPlaintextSize = 65536

	nonceSize = 12
	macSize   = 16

	// DataBlockCiphertextSize is the on-disk size of one full data block:
	// NONCE(12) || CIPHERTEXT(65536) || MAC(16).
	DataBlockCiphertextSize = nonceSize + DataBlockPlaintextSize + macSize
)

const (
	packetTypeDataEncryptionParameters = uint32(0)
	packetTypeEditList                 = uint32(1)

	encryptionMethodChaCha20Poly1305 = uint32(0)
)

// Header is a parsed Crypt4GH header: the session key(s) and any edit
// list, still in their originally-encrypted form plus the decrypted
// DataKey once Unseal has been called.
type Header struct {
	Version uint32

	// Packets holds each packet's raw encrypted bytes, in file order,
	// exactly as needed to re-serialize an unmodified header.
	Packets [][]byte

	// DataKey is the symmetric key protecting the 64KiB data blocks,
	// populated by Unseal.
	DataKey [32]byte

	// HasEditList reports whether the source header already carries an
	// edit list; spec.md §4.G forbids rewrapping such a header.
	HasEditList bool

	// HeaderLength is the total byte length of the header as read,
	// i.e. the file offset of the first data block.
	HeaderLength int64
}

// ReadHeader parses a Crypt4GH header from the start of r. It does not
// decrypt any packet; call Unseal with the recipient's key pair to
// recover DataKey.
func ReadHeader(r io.Reader) (*Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %v", err)
	}
	if string(magic[:]) != magicNumber {
		return nil, fmt.Errorf("not a Crypt4GH file: bad magic %q", magic)
	}

	var hdr Header
	if err := binary.Read(r, binary.LittleEndian, &hdr.Version); err != nil {
		return nil, fmt.Errorf("reading version: %v", err)
	}

	var packetCount uint32
	if err := binary.Read(r, binary.LittleEndian, &packetCount); err != nil {
		return nil, fmt.Errorf("reading packet count: %v", err)
	}

	length := int64(magicPrefix)
	for i := uint32(0); i < packetCount; i++ {
		var packetLength uint32
		if err := binary.Read(r, binary.LittleEndian, &packetLength); err != nil {
			return nil, fmt.Errorf("reading packet %d length: %v", i, err)
		}
		if packetLength < 4 {
			return nil, fmt.Errorf("packet %d length %d too small", i, packetLength)
		}
		body := make([]byte, packetLength-4)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("reading packet %d body: %v", i, err)
		}
		// The packet's length prefix is part of the packet for
		// re-serialization purposes.
		packet := make([]byte, 4+len(body))
		binary.LittleEndian.PutUint32(packet, packetLength)
		copy(packet[4:], body)
		hdr.Packets = append(hdr.Packets, packet)
		length += int64(packetLength)
	}
	hdr.HeaderLength = length
	return &hdr, nil
}

// Write serializes hdr back into its wire form.
func (h *Header) Write(w io.Writer) error {
	if _, err := w.Write([]byte(magicNumber)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(h.Packets))); err != nil {
		return err
	}
	for _, p := range h.Packets {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns h serialized to a byte slice.
func (h *Header) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
