// Package otp issues and verifies one-time login codes. Codes live in Redis
// under a TTL so they survive process restarts and work across replicas; when
// Redis is unavailable the service falls back to a process-local store.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"edumesh/config"
	"edumesh/database"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "otp:"

// demoCode is accepted outside production so the demo flow works without an
// SMS/email provider.
const demoCode = "123456"

type Service struct {
	redis *redis.Client
	ttl   time.Duration

	mu    sync.Mutex
	local map[string]localEntry
}

type localEntry struct {
	hash      []byte
	expiresAt time.Time
}

func NewService() *Service {
	ttl := 5 * time.Minute
	if config.AppConfig != nil && config.AppConfig.OTPExpiresIn > 0 {
		ttl = config.AppConfig.OTPExpiresIn
	}
	return &Service{
		redis: database.GetRedisClient(),
		ttl:   ttl,
		local: make(map[string]localEntry),
	}
}

// TTL returns the configured code lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Send generates a code for the contact and stores only its bcrypt hash.
// Delivery is a provider concern; here the code is logged for the demo flow.
func (s *Service) Send(ctx context.Context, contact, method string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.store(ctx, contact, hash); err != nil {
		return err
	}

	// In production, hand off to an SMS/email provider here.
	logrus.WithFields(logrus.Fields{
		"contact": contact,
		"method":  method,
	}).Infof("OTP issued: %s", code)

	return nil
}

// Verify checks the provided code and consumes it on success. A consumed or
// expired code never verifies twice.
func (s *Service) Verify(ctx context.Context, contact, provided string) bool {
	hash, ok := s.load(ctx, contact)
	if !ok {
		return s.isDemoCode(provided)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(provided)) != nil {
		return s.isDemoCode(provided)
	}

	s.delete(ctx, contact)
	return true
}

func (s *Service) isDemoCode(provided string) bool {
	return strings.ToLower(config.AppConfig.AppEnv) != "production" && provided == demoCode
}

func (s *Service) store(ctx context.Context, contact string, hash []byte) error {
	if s.redis != nil {
		if err := s.redis.Set(ctx, keyPrefix+contact, hash, s.ttl).Err(); err == nil {
			return nil
		} else {
			logrus.Warnf("otp: Redis store failed, using in-process fallback: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[contact] = localEntry{hash: hash, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *Service) load(ctx context.Context, contact string) ([]byte, bool) {
	if s.redis != nil {
		if val, err := s.redis.Get(ctx, keyPrefix+contact).Bytes(); err == nil {
			return val, true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.local[contact]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.local, contact)
		return nil, false
	}
	return entry.hash, true
}

func (s *Service) delete(ctx context.Context, contact string) {
	if s.redis != nil {
		s.redis.Del(ctx, keyPrefix+contact)
	}
	s.mu.Lock()
	delete(s.local, contact)
	s.mu.Unlock()
}

// generateCode returns a random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
