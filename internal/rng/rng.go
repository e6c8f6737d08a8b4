// Package rng derives the arena's reproducible pseudo-random blocks.
//
// A block is the first BlockSize bytes of the ChaCha20 keystream keyed with
// SHA-256(seed || entropy). Identical inputs always give identical blocks.
package rng

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// BlockSize is the length of a derived block.
const BlockSize = 32

// Block is one derived random block.
type Block [BlockSize]byte

// Env is the invocation environment mixed into every derivation so that two
// invocations with the same accumulated entropy do not collide.
type Env struct {
	Height uint64
	Time   int64
	Caller string
}

// Entropy lays out height, time, caller and accumulated entropy.
func Entropy(env Env, accumulated []byte) []byte {
	buf := make([]byte, 16, 16+len(env.Caller)+len(accumulated))
	binary.BigEndian.PutUint64(buf[0:8], env.Height)
	binary.BigEndian.PutUint64(buf[8:16], uint64(env.Time))
	buf = append(buf, env.Caller...)
	return append(buf, accumulated...)
}

// Derive returns the block for seed and entropy.
func Derive(seed, entropy []byte) Block {
	h := sha256.New()
	h.Write(seed)
	h.Write(entropy)
	key := h.Sum(nil)

	var block Block
	cipher, err := chacha20.NewUnauthenticatedCipher(key, make([]byte, chacha20.NonceSize))
	if err != nil {
		// key and nonce lengths are constants
		panic("rng: " + err.Error())
	}
	cipher.XORKeyStream(block[:], block[:])
	return block
}

// GenesisSeed turns the operator-supplied entropy into the initial seed.
func GenesisSeed(entropy string) []byte {
	sum := sha256.Sum256([]byte(base64.StdEncoding.EncodeToString([]byte(entropy))))
	return sum[:]
}

// Stream hands out random bytes, re-deriving a new block from the previous
// one whenever the current block is used up.
type Stream struct {
	entropy []byte
	block   Block
	pos     int
}

// NewStream derives the first block from seed, env and accumulated entropy.
func NewStream(seed []byte, env Env, accumulated string) *Stream {
	entropy := Entropy(env, []byte(accumulated))
	return &Stream{
		entropy: entropy,
		block:   Derive(seed, entropy),
	}
}

// Next returns the next byte.
func (s *Stream) Next() byte {
	if s.pos == BlockSize {
		s.block = Derive(s.block[:], s.entropy)
		s.pos = 0
	}
	b := s.block[s.pos]
	s.pos++
	return b
}

// Block returns the most recently derived block, which becomes the next seed.
func (s *Stream) Block() Block {
	return s.block
}
