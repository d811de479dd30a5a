package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	dir := writeConfig(t, `
auth:
  signing_key: secret
alerts:
  cooldown: 15m
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`)
	cfg, err := loadConfig(viper.New(), dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Alerts.Cooldown != 15*time.Minute {
		t.Fatalf("cooldown = %v", cfg.Alerts.Cooldown)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Topic != "water-readings" {
		t.Fatalf("unexpected kafka config %+v", cfg.Kafka)
	}
	if cfg.Port != "8080" || cfg.Simulator.Tick != time.Second || cfg.Email.QueueSize != 64 || cfg.Redis.Timeout != 250*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, "auth:\n  signing_key: from-file\n")
	t.Setenv("WLM_DB_PATH", "/tmp/override.db")
	t.Setenv("WLM_AUTH_SIGNING_KEY", "from-env")

	cfg, err := loadConfig(viper.New(), dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.DB.Path != "/tmp/override.db" || cfg.Auth.SigningKey != "from-env" {
		t.Fatalf("env not applied: db=%q key=%q", cfg.DB.Path, cfg.Auth.SigningKey)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	cases := map[string]string{
		"missing signing key": "port: \"9000\"\n",
		"email without host":  "auth:\n  signing_key: k\nemail:\n  enabled: true\n  from: a@example.com\n",
		"kafka without topic": "auth:\n  signing_key: k\nkafka:\n  enabled: true\n  topic: \"\"\n",
		"simulator zero tick": "auth:\n  signing_key: k\nsimulator:\n  enabled: true\n  tick: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(viper.New(), writeConfig(t, body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
