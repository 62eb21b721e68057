package crypt4gh

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"
)

func generateKeyPair(t *testing.T) KeyPair {
	t.Helper()
	var kp KeyPair
	_, err := io.ReadFull(rand.Reader, kp.Private[:])
	require.NoError(t, err)
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	require.NoError(t, err)
	copy(kp.Public[:], pub)
	return kp
}

func sealedHeaderFixture(t *testing.T, owner, recipient KeyPair, dataKey [32]byte) *Header {
	t.Helper()
	packet, err := sealPacket(owner, recipient.Public, encodeDataEncryptionParameters(dataKey))
	require.NoError(t, err)
	return &Header{
		Version:      version,
		Packets:      [][]byte{prefixWithLength(packet)},
		HeaderLength: 16, // magic(8) + version(4) + count(4), no packets counted beyond this fixture's own framing
	}
}

func TestEncryptedOffsetRejectsUnalignedOffset(t *testing.T) {
	_, err := EncryptedOffset(124, 100, 10*DataBlockPlaintextSize)
	assert.Error(t, err)
}

func TestEncryptedOffsetRejectsOffsetBeyondFileSize(t *testing.T) {
	_, err := EncryptedOffset(124, DataBlockPlaintextSize, DataBlockPlaintextSize-1)
	assert.Error(t, err)
}

func TestEncryptedOffsetMapsBlockIndexToCiphertextLayout(t *testing.T) {
	off, err := EncryptedOffset(124, 2*DataBlockPlaintextSize, 10*DataBlockPlaintextSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(124)+2*uint64(DataBlockCiphertextSize), off)
}

// TestEncryptedOffsetMapsPartialFinalBlock mirrors the non-aligned EOF
// case from umccr/htsget-rs's edit.rs fixture: the file's true end falls
// inside its final, shorter-than-65536-byte data block.
func TestEncryptedOffsetMapsPartialFinalBlock(t *testing.T) {
	const fileSize = 5485112
	fullBlocks := uint64(fileSize / DataBlockPlaintextSize)
	remainder := uint64(fileSize % DataBlockPlaintextSize)

	off, err := EncryptedOffset(124, fileSize, fileSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(124)+fullBlocks*uint64(DataBlockCiphertextSize)+12+remainder+16, off)
}

func TestHeaderUnsealRoundTrip(t *testing.T) {
	owner := generateKeyPair(t)
	recipient := generateKeyPair(t)
	var dataKey [32]byte
	copy(dataKey[:], bytes.Repeat([]byte{0x42}, 32))

	hdr := sealedHeaderFixture(t, owner, recipient, dataKey)

	err := hdr.Unseal(recipient)
	require.NoError(t, err)
	assert.Equal(t, dataKey, hdr.DataKey)
	assert.False(t, hdr.HasEditList)
}

func TestRewrapRejectsHeaderWithExistingEditList(t *testing.T) {
	hdr := &Header{HasEditList: true}
	_, err := Rewrap(hdr, KeyPair{}, [32]byte{}, []Window{{Start: 0, End: 10}}, 10*DataBlockPlaintextSize)
	assert.Error(t, err)
}

func TestRewrapProducesDecryptableHeaderAndRanges(t *testing.T) {
	owner := generateKeyPair(t)
	recipient := generateKeyPair(t)
	var dataKey [32]byte
	copy(dataKey[:], bytes.Repeat([]byte{0x07}, 32))

	src := &Header{Version: version, DataKey: dataKey, HeaderLength: 124}

	result, err := Rewrap(src, owner, recipient.Public, []Window{{Start: 100, End: 200}}, 10*DataBlockPlaintextSize)
	require.NoError(t, err)
	require.Len(t, result.DataRanges, 1)
	assert.Equal(t, uint64(124), result.DataRanges[0].Start)
	assert.Equal(t, uint64(124)+uint64(DataBlockCiphertextSize)-1, result.DataRanges[0].End)

	rewrapped, err := ReadHeader(bytes.NewReader(result.Header))
	require.NoError(t, err)
	require.Len(t, rewrapped.Packets, 2)

	err = rewrapped.Unseal(recipient)
	require.NoError(t, err)
	assert.Equal(t, dataKey, rewrapped.DataKey)
	assert.True(t, rewrapped.HasEditList)
}

func TestRewrapRejectsEmptyWindowList(t *testing.T) {
	src := &Header{HeaderLength: 124}
	_, err := Rewrap(src, KeyPair{}, [32]byte{}, nil, 10*DataBlockPlaintextSize)
	assert.Error(t, err)
}

// TestRewrapClampsFinalRangeToFileSize exercises the end-to-end fix: a
// window reaching to a non-block-aligned EOF must not produce a
// DataRange that reaches past the encrypted container's actual size.
func TestRewrapClampsFinalRangeToFileSize(t *testing.T) {
	owner := generateKeyPair(t)
	recipient := generateKeyPair(t)
	var dataKey [32]byte
	copy(dataKey[:], bytes.Repeat([]byte{0x09}, 32))

	const headerLength = 124
	const fileSize = 5485112
	src := &Header{Version: version, DataKey: dataKey, HeaderLength: headerLength}

	result, err := Rewrap(src, owner, recipient.Public, []Window{{Start: 5485074, End: 5485112}}, fileSize)
	require.NoError(t, err)
	require.Len(t, result.DataRanges, 1)

	fullBlocks := uint64(fileSize / DataBlockPlaintextSize)
	remainder := uint64(fileSize % DataBlockPlaintextSize)
	wantEnd := uint64(headerLength) + fullBlocks*uint64(DataBlockCiphertextSize) + 12 + remainder + 16 - 1
	assert.Equal(t, wantEnd, result.DataRanges[0].End)

	encryptedSize := uint64(headerLength) + fullBlocks*uint64(DataBlockCiphertextSize) + 12 + remainder + 16
	assert.Less(t, result.DataRanges[0].End, encryptedSize, "data range must not reach past the encrypted container")
}
