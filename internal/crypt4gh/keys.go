package crypt4gh

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// KeyPair is an X25519 key pair used to seal and open Crypt4GH header
// packets.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// LocationKeys is the per-location key configuration a config file binds
// to a Crypt4GH-backed location (SPEC_FULL.md §4.I `c4gh` block): the
// server's own key pair, used to open the source header, and the
// requesting recipient's public key, used to re-seal it.
type LocationKeys struct {
	Owner           KeyPair
	RecipientPublic [32]byte
}

// deriveSharedKey computes the symmetric key two Crypt4GH peers use to
// seal a header packet: an X25519 shared secret hashed together with
// both public keys, the same construction the reference implementation
// uses in place of a raw Diffie-Hellman output.
func deriveSharedKey(private, peerPublic, ownPublic [32]byte, encrypting bool) ([32]byte, error) {
	var shared [32]byte
	out, err := curve25519.X25519(private[:], peerPublic[:])
	if err != nil {
		return shared, fmt.Errorf("computing X25519 shared secret: %v", err)
	}
	copy(shared[:], out)

	h, err := blake2b.New(32, nil)
	if err != nil {
		return shared, fmt.Errorf("initializing blake2b: %v", err)
	}
	h.Write(shared[:])
	if encrypting {
		h.Write(ownPublic[:])
		h.Write(peerPublic[:])
	} else {
		h.Write(peerPublic[:])
		h.Write(ownPublic[:])
	}
	var derived [32]byte
	copy(derived[:], h.Sum(nil))
	return derived, nil
}

// sealPacket encrypts plaintext for recipientPublic using senderPrivate,
// in the wire form `method(4) || senderPublic(32) || nonce(12) || ciphertext+tag`.
func sealPacket(sender KeyPair, recipientPublic [32]byte, plaintext []byte) ([]byte, error) {
	key, err := deriveSharedKey(sender.Private, recipientPublic, sender.Public, true)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing AEAD: %v", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %v", err)
	}

	out := make([]byte, 4+32+len(nonce))
	binary.LittleEndian.PutUint32(out, encryptionMethodChaCha20Poly1305)
	copy(out[4:], sender.Public[:])
	copy(out[36:], nonce)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// openPacket decrypts a packet sealed by sealPacket using recipient's
// private key.
func openPacket(recipient KeyPair, packet []byte) ([]byte, error) {
	if len(packet) < 4+32+12 {
		return nil, fmt.Errorf("packet too short (%d bytes)", len(packet))
	}
	method := binary.LittleEndian.Uint32(packet[:4])
	if method != encryptionMethodChaCha20Poly1305 {
		return nil, fmt.Errorf("unsupported header encryption method %d", method)
	}
	var senderPublic [32]byte
	copy(senderPublic[:], packet[4:36])
	nonce := packet[36:48]
	ciphertext := packet[48:]

	key, err := deriveSharedKey(recipient.Private, senderPublic, recipient.Public, false)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("initializing AEAD: %v", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("opening packet: %v", err)
	}
	return plaintext, nil
}
