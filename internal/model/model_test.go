package model

import (
	"errors"
	"testing"
	"time"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future", now.Add(time.Hour), false},
		{"exact", now, true},
		{"past", now.Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{ExpiresAt: tt.expiresAt}
			if got := s.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUploadFailed_KeepsErrorText(t *testing.T) {
	r := UploadFailed(errors.New("dial tcp: connection refused"))
	if r.OK {
		t.Error("OK = true, want false")
	}
	if r.Reason != "dial tcp: connection refused" {
		t.Errorf("Reason = %q, want %q", r.Reason, "dial tcp: connection refused")
	}
}

func TestInputError_IsInvalidInput(t *testing.T) {
	err := &InputError{Field: "electricity", Reason: "must not be negative"}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("InputError should match ErrInvalidInput")
	}
	if err.Error() != "electricity: must not be negative" {
		t.Errorf("Error() = %q", err.Error())
	}
}
