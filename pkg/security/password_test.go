package security_test

import (
	"strings"
	"testing"

	"github.com/avilaromero/clientpulse-backend/pkg/config"
	"github.com/avilaromero/clientpulse-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", testPasswordConfig())
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := security.HashPassword("", testPasswordConfig()); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
