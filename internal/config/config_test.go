package config

import (
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "telecall", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Telephony: TelephonyConfig{
			Provider:      "noop",
			WebhookSecret: "secret",
		},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Calls.DailyCap != 10 {
		t.Fatalf("expected daily cap default 10, got %d", c.Calls.DailyCap)
	}
	if c.Calls.StalenessThreshold != 300*time.Second {
		t.Fatalf("expected staleness default 300s, got %v", c.Calls.StalenessThreshold)
	}
	if c.Calls.FreshnessWindow != time.Hour {
		t.Fatalf("expected freshness default 1h, got %v", c.Calls.FreshnessWindow)
	}
}

func TestValidate_TwilioRequiresCredentials(t *testing.T) {
	c := validLocal()
	c.Telephony.Provider = "twilio"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for twilio without credentials")
	}

	c = validLocal()
	c.Telephony.Provider = "twilio"
	c.Telephony.AccountSID = "AC123"
	c.Telephony.AuthToken = "token"
	c.Telephony.CallerID = "+15550000000"
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidate_WebhookSecretRequired(t *testing.T) {
	c := validLocal()
	c.Telephony.WebhookSecret = ""
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for missing webhook secret")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	c := validLocal()
	c.Telephony.Provider = "carrier_pigeon"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
