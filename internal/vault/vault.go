// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

// Package vault encrypts and decrypts secrets in the Ansible Vault 1.1
// format (AES256 cipher), so the automation backend can vault a value
// without shelling out to ansible-vault.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/pbkdf2"
)

// Header opens every vaulted value.
const Header = "$ANSIBLE_VAULT;1.1;AES256"

// Error codes.
const (
	CodeEmptyPassword = "VAULT_EMPTY_PASSWORD"
	CodeMalformed     = "VAULT_MALFORMED"
	CodeBadPassword   = "VAULT_BAD_PASSWORD"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 10000
	lineWidth  = 80
)

// keys derives the cipher key, HMAC key and counter IV from password.
func keys(password, salt []byte) (cipherKey, hmacKey, iv []byte) {
	dk := pbkdf2.Key(password, salt, iterations, 2*keySize+aes.BlockSize, sha256.New)
	return dk[:keySize], dk[keySize : 2*keySize], dk[2*keySize:]
}

// Encrypt vaults plaintext with password using a random salt.
func Encrypt(plaintext, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", oops.In("vault").Wrapf(err, "generate salt")
	}
	return EncryptWithSalt(plaintext, password, salt)
}

// EncryptWithSalt is Encrypt with a caller-chosen salt.
func EncryptWithSalt(plaintext, password string, salt []byte) (string, error) {
	if password == "" {
		return "", oops.Code(CodeEmptyPassword).In("vault").Errorf("vault password is empty")
	}
	cipherKey, hmacKey, iv := keys([]byte(password), salt)

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return "", oops.In("vault").Wrapf(err, "create cipher")
	}
	padded := pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, padded)

	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)

	body := hex.EncodeToString(salt) + "\n" +
		hex.EncodeToString(mac.Sum(nil)) + "\n" +
		hex.EncodeToString(ciphertext)
	encoded := hex.EncodeToString([]byte(body))

	var b strings.Builder
	b.WriteString(Header)
	for i := 0; i < len(encoded); i += lineWidth {
		b.WriteByte('\n')
		b.WriteString(encoded[i:min(i+lineWidth, len(encoded))])
	}
	b.WriteByte('\n')
	return b.String(), nil
}

// Decrypt reverses Encrypt. A wrong password fails the HMAC check with
// CodeBadPassword.
func Decrypt(vaulted, password string) (string, error) {
	lines := strings.Split(strings.TrimSpace(vaulted), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != Header {
		return "", malformed("missing %s header", Header)
	}
	var encoded strings.Builder
	for _, l := range lines[1:] {
		encoded.WriteString(strings.TrimSpace(l))
	}
	body, err := hex.DecodeString(encoded.String())
	if err != nil {
		return "", malformed("payload is not hex")
	}
	parts := strings.Split(string(body), "\n")
	if len(parts) != 3 {
		return "", malformed("payload has %d parts, want 3", len(parts))
	}
	salt, err1 := hex.DecodeString(parts[0])
	sum, err2 := hex.DecodeString(parts[1])
	ciphertext, err3 := hex.DecodeString(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", malformed("payload fields are not hex")
	}

	cipherKey, hmacKey, iv := keys([]byte(password), salt)
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ciphertext)
	if !hmac.Equal(mac.Sum(nil), sum) {
		return "", oops.Code(CodeBadPassword).In("vault").Errorf("HMAC mismatch: wrong password or corrupted data")
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return "", oops.In("vault").Wrapf(err, "create cipher")
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plain, ciphertext)
	out, ok := unpad(plain)
	if !ok {
		return "", malformed("bad padding")
	}
	return string(out), nil
}

// IsVaulted reports whether s starts with a vault header.
func IsVaulted(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "$ANSIBLE_VAULT;")
}

func malformed(format string, args ...any) error {
	return oops.Code(CodeMalformed).In("vault").Errorf(format, args...)
}

// pad applies PKCS#7 to the AES block size.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
