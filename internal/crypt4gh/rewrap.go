package crypt4gh

import (
	"fmt"

	ourbgzf "github.com/ga4gh/htsget-ticket-server/internal/bgzf"
)

// EncryptedOffset maps a plaintext offset into the corresponding byte
// offset in the encrypted container, given the header length the block
// offsets follow and the container's total plaintext size. Rewrap only
// ever calls this with ClampedRange bounds, which are always
// data-block-aligned by construction, except that a ClampedRange.End
// clamped to fileSize may fall inside the file's final, commonly
// partial, data block — that block's ciphertext is still framed as
// NONCE || CIPHERTEXT || MAC, just sized to its shorter plaintext.
func EncryptedOffset(headerLength int64, plaintextOffset, fileSize uint64) (uint64, error) {
	if plaintextOffset > fileSize {
		return 0, fmt.Errorf("offset %d is beyond file size %d", plaintextOffset, fileSize)
	}
	fullBlocks := plaintextOffset / DataBlockPlaintextSize
	remainder := plaintextOffset % DataBlockPlaintextSize
	if remainder == 0 {
		return uint64(headerLength) + fullBlocks*DataBlockCiphertextSize, nil
	}
	if plaintextOffset != fileSize {
		return 0, fmt.Errorf("offset %d is not data-block aligned", plaintextOffset)
	}
	partialBlockCiphertextSize := uint64(nonceSize) + remainder + uint64(macSize)
	return uint64(headerLength) + fullBlocks*DataBlockCiphertextSize + partialBlockCiphertextSize, nil
}

// RewrapResult is the outcome of rewrapping a Crypt4GH header for a
// recipient restricted to a set of plaintext windows.
type RewrapResult struct {
	// Header is the new header: the original data-encryption-parameters
	// packet re-sealed for the recipient, plus a new edit-list packet.
	Header []byte

	// DataRanges are byte ranges into the *encrypted* container's data
	// blocks (offsets beyond the original header) that must be fetched to
	// cover every requested window, in ascending order.
	DataRanges []ourbgzf.ByteRange
}

// Rewrap builds a header that lets recipient decrypt exactly the union
// of windows from a Crypt4GH container whose header is src, sealed under
// owner's key pair. fileSize is the container's plaintext length, used
// to keep the last clamped range from reaching past the file's true end.
// It fails if src already carries an edit list: a container can only be
// rewrapped once (spec.md §4.G).
func Rewrap(src *Header, owner KeyPair, recipientPublic [32]byte, windows []Window, fileSize uint64) (RewrapResult, error) {
	if src.HasEditList {
		return RewrapResult{}, fmt.Errorf("source header already carries an edit list, cannot rewrap twice")
	}
	if len(windows) == 0 {
		return RewrapResult{}, fmt.Errorf("no windows requested")
	}

	dekPacket, err := sealPacket(owner, recipientPublic, encodeDataEncryptionParameters(src.DataKey))
	if err != nil {
		return RewrapResult{}, fmt.Errorf("sealing data-encryption-parameters packet: %v", err)
	}

	edits, clamped := BuildEditList(windows, fileSize)
	editPacket, err := sealPacket(owner, recipientPublic, edits.encode())
	if err != nil {
		return RewrapResult{}, fmt.Errorf("sealing edit-list packet: %v", err)
	}

	newHeader := &Header{
		Version: src.Version,
		Packets: [][]byte{
			prefixWithLength(dekPacket),
			prefixWithLength(editPacket),
		},
	}
	headerBytes, err := newHeader.Bytes()
	if err != nil {
		return RewrapResult{}, fmt.Errorf("serializing rewrapped header: %v", err)
	}

	ranges := make([]ourbgzf.ByteRange, 0, len(clamped))
	for _, c := range clamped {
		start, err := EncryptedOffset(src.HeaderLength, c.Start, fileSize)
		if err != nil {
			return RewrapResult{}, err
		}
		end, err := EncryptedOffset(src.HeaderLength, c.End, fileSize)
		if err != nil {
			return RewrapResult{}, err
		}
		ranges = append(ranges, ourbgzf.ByteRange{Start: start, End: end - 1})
	}

	return RewrapResult{Header: headerBytes, DataRanges: ranges}, nil
}

// prefixWithLength wraps a sealed packet body with its own 4-byte
// length-prefix, matching the form Header.Packets expects (ReadHeader
// keeps the prefix attached to each packet for this reason).
func prefixWithLength(body []byte) []byte {
	packet := make([]byte, 4+len(body))
	length := uint32(4 + len(body))
	packet[0] = byte(length)
	packet[1] = byte(length >> 8)
	packet[2] = byte(length >> 16)
	packet[3] = byte(length >> 24)
	copy(packet[4:], body)
	return packet
}
