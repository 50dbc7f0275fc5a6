package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.APIPrefix != "/api/v1" {
		t.Errorf("APIPrefix = %q", cfg.APIPrefix)
	}
	if cfg.RevalidateWindow != 300*time.Second {
		t.Errorf("RevalidateWindow = %v", cfg.RevalidateWindow)
	}
	if cfg.PageSize != 12 {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if cfg.PaymentProvider != "stripe" {
		t.Errorf("PaymentProvider = %q", cfg.PaymentProvider)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("RetryMaxAttempts = %d", cfg.RetryMaxAttempts)
	}
}

func TestNewConfigEnvironmentOverlay(t *testing.T) {
	t.Setenv("GREENCART_API_BASE", "https://api.example.test")
	t.Setenv("GREENCART_PAGE_SIZE", "24")
	t.Setenv("GREENCART_HTTP_TIMEOUT", "5s")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.test" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.PageSize != 24 {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
}

func TestNewConfigOptionsBeatEnvironment(t *testing.T) {
	t.Setenv("GREENCART_API_BASE", "https://env.example.test")

	cfg, err := NewConfig(WithAPIBaseURL("https://option.example.test"))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.APIBaseURL != "https://option.example.test" {
		t.Errorf("options must win over environment, got %q", cfg.APIBaseURL)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"empty base URL", []Option{WithAPIBaseURL("")}, ErrMissingConfiguration},
		{"non-http base URL", []Option{WithAPIBaseURL("ftp://example.test")}, ErrInvalidConfiguration},
		{"zero page size", []Option{WithPageSize(0)}, ErrInvalidConfiguration},
		{"zero retry attempts", []Option{WithRetryPolicy(0, time.Second)}, ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigTrimsTrailingSlash(t *testing.T) {
	cfg, err := NewConfig(WithAPIBaseURL("https://api.example.test/"))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.test" {
		t.Errorf("expected trimmed base URL, got %q", cfg.APIBaseURL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("api_base_url: https://file.example.test\npage_size: 6\npayment_provider: paypal\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path, WithPageSize(18))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.APIBaseURL != "https://file.example.test" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.PaymentProvider != "paypal" {
		t.Errorf("PaymentProvider = %q", cfg.PaymentProvider)
	}
	if cfg.PageSize != 18 {
		t.Errorf("options must win over the file, got %d", cfg.PageSize)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("expected ErrMissingConfiguration, got %v", err)
	}
}

func TestLoadConfigFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_base_url: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfigFile(path)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration, got %v", err)
	}
}
