package gntp

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
)

// EncryptionAlgorithm names the symmetric cipher declared on the
// request line. All ciphers run in CBC mode with PKCS7 padding.
type EncryptionAlgorithm string

const (
	EncryptionNone EncryptionAlgorithm = "NONE"
	EncryptionAES  EncryptionAlgorithm = "AES"
	EncryptionDES  EncryptionAlgorithm = "DES"
	Encryption3DES EncryptionAlgorithm = "3DES"
)

// ParseEncryptionAlgorithm maps a request-line name to an algorithm.
func ParseEncryptionAlgorithm(s string) (EncryptionAlgorithm, bool) {
	switch EncryptionAlgorithm(s) {
	case EncryptionNone, EncryptionAES, EncryptionDES, Encryption3DES:
		return EncryptionAlgorithm(s), true
	}
	return "", false
}

// KeySize returns the cipher key length in bytes. The key is the
// leading slice of the authenticator's password digest.
func (a EncryptionAlgorithm) KeySize() int {
	switch a {
	case EncryptionAES:
		return 24
	case EncryptionDES:
		return 8
	case Encryption3DES:
		return 24
	}
	return 0
}

// BlockSize returns the cipher block length in bytes.
func (a EncryptionAlgorithm) BlockSize() int {
	switch a {
	case EncryptionAES:
		return aes.BlockSize
	case EncryptionDES, Encryption3DES:
		return des.BlockSize
	}
	return 0
}

// Cipher holds the algorithm, key, and IV for one request. Each
// Decrypt or Encrypt call reinitializes cipher state, so the same
// key/IV pair applies independently to the header block and to every
// resource payload.
type Cipher struct {
	Algorithm EncryptionAlgorithm

	key []byte
	iv  []byte
}

// NewCipher validates the key and IV against the declared algorithm.
// An empty IV is only valid with NONE; an IV supplied with NONE is
// ignored, as some senders emit one anyway.
func NewCipher(algo EncryptionAlgorithm, key, iv []byte) (*Cipher, error) {
	if algo == EncryptionNone {
		return &Cipher{Algorithm: algo}, nil
	}
	if len(iv) != algo.BlockSize() {
		return nil, ErrInvalidRequest.WithDetail("%s requires a %d-byte IV, got %d", algo, algo.BlockSize(), len(iv))
	}
	if len(key) < algo.KeySize() {
		return nil, ErrNotAuthorized.WithDetail("key hash too short for %s: %d < %d", algo, len(key), algo.KeySize())
	}
	return &Cipher{Algorithm: algo, key: key[:algo.KeySize()], iv: iv}, nil
}

// Active reports whether payload bytes are actually transformed.
func (c *Cipher) Active() bool {
	return c != nil && c.Algorithm != EncryptionNone
}

func (c *Cipher) newBlock() (cipher.Block, error) {
	switch c.Algorithm {
	case EncryptionAES:
		return aes.NewCipher(c.key)
	case EncryptionDES:
		return des.NewCipher(c.key)
	case Encryption3DES:
		return des.NewTripleDESCipher(c.key)
	}
	return nil, ErrInternalServerError.WithDetail("no block cipher for %q", c.Algorithm)
}

// Decrypt decrypts one ciphertext range with fresh cipher state.
// Padding or alignment faults surface as ErrDecryptionFailed.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if !c.Active() {
		return ciphertext, nil
	}
	block, err := c.newBlock()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrDecryptionFailed.WithDetail("ciphertext length %d is not a multiple of the %d-byte block", len(ciphertext), block.BlockSize())
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, c.iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext, block.BlockSize())
}

// Encrypt is the inverse transform, used by tests and by senders that
// reuse this package as a client codec.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if !c.Active() {
		return plaintext, nil
	}
	block, err := c.newBlock()
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, c.iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecryptionFailed.WithDetail("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecryptionFailed.WithDetail("bad padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecryptionFailed.WithDetail("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
