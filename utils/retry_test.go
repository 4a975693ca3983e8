package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewDiscardLogger()}

	calls := 0
	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryWrapsLastError(t *testing.T) {
	sentinel := errors.New("still broken")
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: NewDiscardLogger()}

	err := r.Do(context.Background(), "broken", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("expected wrapped sentinel, got %v", err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Logger: NewDiscardLogger()}

	calls := 0
	err := r.Do(ctx, "cancelled", func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://Example.com/Listing/1/", "https://example.com/listing/1"},
		{"  https://example.com/listing/1  ", "https://example.com/listing/1"},
		{"https://example.com/listing/1#photos", "https://example.com/listing/1"},
		{"https://example.com/l/?id=9", "https://example.com/l?id=9"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeURL(tt.raw); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://site.com/list/2", "/business/abc", "https://site.com/business/abc"},
		{"https://site.com/list/", "detail/9", "https://site.com/list/detail/9"},
		{"https://site.com/", "https://other.com/x", "https://other.com/x"},
		{"https://site.com/", "javascript:void(0)", ""},
		{"https://site.com/", "#", ""},
	}

	for _, tt := range tests {
		if got := AbsoluteURL(tt.base, tt.href); got != tt.want {
			t.Errorf("AbsoluteURL(%q, %q) = %q; want %q", tt.base, tt.href, got, tt.want)
		}
	}
}

func TestRetryPermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, Logger: NewDiscardLogger()}

	calls := 0
	err := r.Do(context.Background(), "permanent", func() error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.Flippa.com/listing/1", "flippa.com"},
		{"https://empireflippers.com:443/listing/2", "empireflippers.com"},
		{"not a url", ""},
		{"://bad", ""},
	}

	for _, tt := range tests {
		if got := Host(tt.in); got != tt.want {
			t.Errorf("Host(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
