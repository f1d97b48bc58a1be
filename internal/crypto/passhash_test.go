package crypto

import (
	"bytes"
	"testing"
)

func TestRandBytes(t *testing.T) {
	t.Parallel()

	const n = 48
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	if bytes.Equal(a, make([]byte, n)) {
		t.Fatalf("RandBytes returned all zeros")
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes second call: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two draws of %d bytes are identical", n)
	}
}

func TestNewSalt(t *testing.T) {
	t.Parallel()

	s, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	if len(s) != SaltLen {
		t.Fatalf("salt len=%d, want=%d", len(s), SaltLen)
	}
}

func TestHashPassword_InputsChangeHash(t *testing.T) {
	t.Parallel()

	pw := []byte("hunter2-but-longer")
	salt := []byte("0123456789abcdef")

	base := HashPassword(pw, salt)
	if len(base) == 0 {
		t.Fatalf("empty hash")
	}
	if !bytes.Equal(base, HashPassword(pw, salt)) {
		t.Fatalf("same password and salt must hash identically")
	}
	if bytes.Equal(base, HashPassword(pw, []byte("fedcba9876543210"))) {
		t.Fatalf("different salt must change the hash")
	}
	if bytes.Equal(base, HashPassword([]byte("hunter2-but-longer!"), salt)) {
		t.Fatalf("different password must change the hash")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	pw := []byte("correct horse battery staple")
	salt := []byte("0123456789abcdef")
	hash := HashPassword(pw, salt)

	cases := []struct {
		name     string
		password []byte
		salt     []byte
		want     bool
	}{
		{"match", pw, salt, true},
		{"wrong password", []byte("tr0ub4dor&3"), salt, false},
		{"wrong salt", pw, []byte("fedcba9876543210"), false},
		{"empty password", []byte{}, salt, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifyPassword(tc.password, tc.salt, hash); got != tc.want {
				t.Fatalf("VerifyPassword=%v, want %v", got, tc.want)
			}
		})
	}
}
