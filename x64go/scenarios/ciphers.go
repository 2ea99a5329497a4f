package scenarios

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/sidestep-ct/sidestep/x64go/tracee"
)

func aesBlock() error {
	key := []byte("0123456789abcdef")
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	src := []byte("sixteen byte blk")
	dst := make([]byte, aes.BlockSize)
	run := func() { block.Encrypt(dst, src) }
	run()

	tracee.Window(run)
	tracee.Window(run)
	return nil
}

// AESRandomWindows is the number of windows aesrandom traces.
const AESRandomWindows = 64

var (
	aesKey [16]byte
	aesIn  [aes.BlockSize]byte
	aesOut [aes.BlockSize]byte
)

// aesRandom encrypts a fresh random block in every window under a key drawn
// from crypto/rand. The expanded key lives on the heap, so rekeying between
// windows would move the round keys the cipher loads; the key is drawn once
// per run instead.
func aesRandom() error {
	if _, err := rand.Read(aesKey[:]); err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	block, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return err
	}
	run := func() { encryptBlock(block, &aesOut, &aesIn) }
	run()

	for i := 0; i < AESRandomWindows; i++ {
		if _, err := rand.Read(aesIn[:]); err != nil {
			return fmt.Errorf("failed to read block %d: %w", i, err)
		}
		tracee.Window(run)
	}
	return nil
}

//go:noinline
func encryptBlock(b cipher.Block, dst, src *[aes.BlockSize]byte) {
	b.Encrypt(dst[:], src[:])
}

var (
	hashIn  [4]byte
	hashOut [sha256.Size]byte
)

// sha256Digest hashes two inputs of equal length. The digest state stays on
// the stack of sha256.Sum256.
func sha256Digest() error {
	run := func() { hashOut = sha256.Sum256(hashIn[:]) }
	hashIn = [4]byte{0, 1, 2, 3}
	run()

	tracee.Window(run)
	hashIn = [4]byte{4, 5, 6, 7}
	tracee.Window(run)
	return nil
}

// rc4KSA is the RC4 key schedule. The swap index j depends on the key.
//
//go:noinline
func rc4KSA(s *[256]byte, key []byte) {
	for i := range s {
		s[i] = byte(i)
	}
	var j byte
	for i := 0; i < 256; i++ {
		j += s[i] + key[i%len(key)]
		s[i], s[j] = s[j], s[i]
	}
}

func rc4Schedule() error {
	var s [256]byte
	key := []byte("Key1secret")
	run := func() { rc4KSA(&s, key) }
	run()

	tracee.Window(run)
	copy(key, "Key2public")
	tracee.Window(run)
	return nil
}
