package gntp

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// HashAlgorithm names a key-hash digest declared on the request line.
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "MD5"
	HashSHA1   HashAlgorithm = "SHA1"
	HashSHA256 HashAlgorithm = "SHA256"
	HashSHA512 HashAlgorithm = "SHA512"
)

// ParseHashAlgorithm maps a request-line name to a HashAlgorithm.
func ParseHashAlgorithm(s string) (HashAlgorithm, bool) {
	switch HashAlgorithm(s) {
	case HashMD5, HashSHA1, HashSHA256, HashSHA512:
		return HashAlgorithm(s), true
	}
	return "", false
}

func (a HashAlgorithm) newHash() hash.Hash {
	switch a {
	case HashMD5:
		return md5.New()
	case HashSHA1:
		return sha1.New()
	case HashSHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

// Digest computes digest(password ++ salt). The result doubles as the
// symmetric decryption key when the request is encrypted.
func (a HashAlgorithm) Digest(password, salt []byte) []byte {
	h := a.newHash()
	h.Write(password)
	h.Write(salt)
	return h.Sum(nil)
}

// AuthSpec is the optional fourth request-line field:
// <hashAlgo>:<hashHex>.<saltHex>.
type AuthSpec struct {
	Algorithm HashAlgorithm
	HashHex   string
	SaltHex   string
}

// HashBytes decodes the supplied key hash.
func (a *AuthSpec) HashBytes() ([]byte, error) {
	b, err := hex.DecodeString(a.HashHex)
	if err != nil {
		return nil, ErrNotAuthorized.WithDetail("hash is not valid hex: %v", err)
	}
	return b, nil
}

// SaltBytes decodes the supplied salt.
func (a *AuthSpec) SaltBytes() ([]byte, error) {
	b, err := hex.DecodeString(a.SaltHex)
	if err != nil {
		return nil, ErrNotAuthorized.WithDetail("salt is not valid hex: %v", err)
	}
	return b, nil
}
