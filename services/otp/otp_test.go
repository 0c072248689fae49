package otp

import (
	"context"
	"testing"
	"time"

	"edumesh/config"

	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, env string) *Service {
	t.Helper()
	config.AppConfig = &config.Config{AppEnv: env, OTPExpiresIn: time.Minute}
	return &Service{
		ttl:   time.Minute,
		local: make(map[string]localEntry),
	}
}

func storeCode(t *testing.T, s *Service, contact, code string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := s.store(context.Background(), contact, hash); err != nil {
		t.Fatalf("store: %v", err)
	}
}

func TestVerifyConsumesCode(t *testing.T) {
	s := newTestService(t, "production")
	storeCode(t, s, "parent@example.com", "482913")

	if !s.Verify(context.Background(), "parent@example.com", "482913") {
		t.Fatal("expected first verify to succeed")
	}
	if s.Verify(context.Background(), "parent@example.com", "482913") {
		t.Fatal("code must be consumed after a successful verify")
	}
}

func TestVerifyWrongCode(t *testing.T) {
	s := newTestService(t, "production")
	storeCode(t, s, "+919876543210", "482913")

	if s.Verify(context.Background(), "+919876543210", "000000") {
		t.Fatal("wrong code must not verify")
	}
	// the stored code is still valid after a failed attempt
	if !s.Verify(context.Background(), "+919876543210", "482913") {
		t.Fatal("correct code should still verify after a failed attempt")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	s := newTestService(t, "production")
	storeCode(t, s, "parent@example.com", "482913")

	s.mu.Lock()
	entry := s.local["parent@example.com"]
	entry.expiresAt = time.Now().Add(-time.Second)
	s.local["parent@example.com"] = entry
	s.mu.Unlock()

	if s.Verify(context.Background(), "parent@example.com", "482913") {
		t.Fatal("expired code must not verify")
	}
}

func TestDemoCodeOutsideProduction(t *testing.T) {
	s := newTestService(t, "development")
	if !s.Verify(context.Background(), "anyone@example.com", "123456") {
		t.Fatal("demo code should verify outside production")
	}

	prod := newTestService(t, "production")
	if prod.Verify(context.Background(), "anyone@example.com", "123456") {
		t.Fatal("demo code must not verify in production")
	}
}

func TestGenerateCodeSixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digit code, got %q", code)
		}
	}
}
