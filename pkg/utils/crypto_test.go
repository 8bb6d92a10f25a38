package utils

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	ciphertext, err := Encrypt([]byte("a very secret token"), key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(ciphertext, "secret") {
		t.Fatal("ciphertext leaks plaintext")
	}

	plaintext, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plaintext != "a very secret token" {
		t.Fatalf("plaintext=%q", plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	otherKey := []byte("fedcba9876543210fedcba9876543210")

	ciphertext, err := Encrypt([]byte("token"), key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(ciphertext, otherKey); err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
}

func TestDecryptGarbage(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	if _, err := Decrypt("not base64!!", key); err == nil {
		t.Fatal("expected error for invalid base64")
	}
	if _, err := Decrypt("c2hvcnQ=", key); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}
