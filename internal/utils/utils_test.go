package utils

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    Header
		wantErr bool
	}{
		{"simple", "X-Tenant: acme", Header{Name: "X-Tenant", Value: "acme"}, false},
		{"colon in value", "Authorization: Basic a:b", Header{Name: "Authorization", Value: "Basic a:b"}, false},
		{"no space", "X-Tenant:acme", Header{Name: "X-Tenant", Value: "acme"}, false},
		{"empty value", "X-Empty:", Header{Name: "X-Empty", Value: ""}, false},
		{"no colon", "X-Tenant acme", Header{}, true},
		{"empty name", " : acme", Header{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeader(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.arg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders([]string{"B: 2", "A: 1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(headers) != 2 || headers[0].Name != "B" || headers[1].Name != "A" {
		t.Errorf("Expected order to be kept, got %+v", headers)
	}

	if _, err := ParseHeaders([]string{"A: 1", "broken"}); err == nil {
		t.Error("Expected error for malformed header")
	}
}

func TestWithSignalCancel(t *testing.T) {
	ctx, cancel := WithSignalCancel(context.Background())
	defer cancel()

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Failed to send signal: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected context to be cancelled by SIGTERM")
	}
}

func TestWithSignalCancelParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := WithSignalCancel(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("Expected context to follow its parent")
	}
}
