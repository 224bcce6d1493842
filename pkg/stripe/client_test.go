package stripe

import (
	"context"
	"testing"

	"github.com/avilaromero/clientpulse-backend/pkg/config"
)

func TestNewClient_EnvKeyMismatch(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.StripeConfig
	}{
		{"live key in test env", config.StripeConfig{APIKey: "sk_live_abc", Env: "test"}},
		{"test key in live env", config.StripeConfig{APIKey: "sk_test_abc", Env: "live"}},
		{"unknown env", config.StripeConfig{APIKey: "sk_test_abc", Env: "staging"}},
		{"missing key", config.StripeConfig{Env: "test"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewClient(context.Background(), tc.cfg, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewClient_OptionalSigningSecret(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey: "sk_test_abc",
		Env:    "test",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.SigningSecret() != "" {
		t.Fatalf("expected empty signing secret, got %q", client.SigningSecret())
	}
	if client.Environment() != "test" {
		t.Fatalf("unexpected environment %q", client.Environment())
	}
	if client.API() == nil {
		t.Fatal("expected initialized api client")
	}
}

func TestNewClient_SigningSecretTrimmed(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey: "rk_test_abc",
		Secret: "  whsec_123  ",
		Env:    "",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.SigningSecret() != "whsec_123" {
		t.Fatalf("unexpected signing secret %q", client.SigningSecret())
	}
}
