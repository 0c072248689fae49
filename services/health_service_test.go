package services

import (
	"testing"
	"time"
)

func TestWorstStatus(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{healthOK, healthOK, healthOK},
		{healthOK, healthDegraded, healthDegraded},
		{healthDegraded, healthOK, healthDegraded},
		{healthDegraded, healthCritical, healthCritical},
		{healthCritical, healthOK, healthCritical},
		{"garbage", healthDegraded, healthDegraded},
	}
	for _, tc := range tests {
		if got := worstStatus(tc.a, tc.b); got != tc.want {
			t.Errorf("worstStatus(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestUptimeString(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{3*time.Hour + 5*time.Second, "3h 0m 5s"},
		{26 * time.Hour, "1d 2h 0m 0s"},
	}
	for _, tc := range tests {
		if got := uptimeString(tc.d); got != tc.want {
			t.Errorf("uptimeString(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestHTTPStatusForOverall(t *testing.T) {
	s := NewHealthService("test", "0.0.0")
	if got := s.HTTPStatusForOverall(healthCritical); got != 503 {
		t.Errorf("critical should map to 503, got %d", got)
	}
	if got := s.HTTPStatusForOverall(healthDegraded); got != 200 {
		t.Errorf("degraded should map to 200, got %d", got)
	}
	if got := s.HTTPStatusForOverall(healthOK); got != 200 {
		t.Errorf("ok should map to 200, got %d", got)
	}
}
