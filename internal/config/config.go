package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Haptic HapticConfig `yaml:"haptic"`
	Web    WebConfig    `yaml:"web"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	Input  InputConfig  `yaml:"input"`
}

type HapticConfig struct {
	Name         string        `yaml:"name" env:"HAPTICD_NAME"`
	FrequencyHz  int           `yaml:"frequency_hz" env:"HAPTICD_FREQUENCY_HZ"`
	DutyPercent  int           `yaml:"duty_percent" env:"HAPTICD_DUTY_PERCENT"`
	StartupPulse time.Duration `yaml:"startup_pulse" env:"HAPTICD_STARTUP_PULSE"`

	PWM        PWMConfig        `yaml:"pwm"`
	EnableLine EnableLineConfig `yaml:"enable_line"`
}

type PWMConfig struct {
	// Backend is one of: sysfs, sim.
	Backend string `yaml:"backend" env:"HAPTICD_PWM_BACKEND"`
	// Chip is the pwmchipN directory name. Empty selects the first chip
	// exposing Channel.
	Chip    string `yaml:"chip" env:"HAPTICD_PWM_CHIP"`
	Channel *int   `yaml:"channel" env:"HAPTICD_PWM_CHANNEL"`
}

type EnableLineConfig struct {
	// Backend is one of: gpiocdev, gpiomem, memmap, sim.
	Backend string `yaml:"backend" env:"HAPTICD_LINE_BACKEND"`
	Chip    string `yaml:"chip" env:"HAPTICD_LINE_CHIP"`
	Line    string `yaml:"line" env:"HAPTICD_LINE_NAME"`
	Pin     *int   `yaml:"pin" env:"HAPTICD_LINE_PIN"`
}

type WebConfig struct {
	Listen string `yaml:"listen" env:"HAPTICD_WEB_LISTEN"`
}

type MQTTConfig struct {
	// Host empty disables the bridge.
	Host        string `yaml:"host" env:"HAPTICD_MQTT_HOST"`
	Port        int    `yaml:"port" env:"HAPTICD_MQTT_PORT"`
	ClientID    string `yaml:"client_id" env:"HAPTICD_MQTT_CLIENT_ID"`
	TopicPrefix string `yaml:"topic_prefix" env:"HAPTICD_MQTT_TOPIC_PREFIX"`
	CACert      string `yaml:"ca_cert" env:"HAPTICD_MQTT_CA_CERT"`
	ClientCert  string `yaml:"client_cert" env:"HAPTICD_MQTT_CLIENT_CERT"`
	ClientKey   string `yaml:"client_key" env:"HAPTICD_MQTT_CLIENT_KEY"`
}

type InputConfig struct {
	// Device is an evdev path such as /dev/input/event0. Empty disables
	// click feedback.
	Device    string `yaml:"device" env:"HAPTICD_INPUT_DEVICE"`
	ClickMs   int    `yaml:"click_ms" env:"HAPTICD_INPUT_CLICK_MS"`
	ClickDuty int    `yaml:"click_duty" env:"HAPTICD_INPUT_CLICK_DUTY"`
}

const maxTimeoutMs = 5000

// lookupEnv is swapped by tests.
var lookupEnv = os.Environ

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) && allUnknownFields(te.Errors) {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(stripLines(te.Errors), "; "))
		}
		return Config{}, err
	}

	// Defaults first so optional pointer fields exist before env overrides
	// land on them; validate again afterwards.
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func allUnknownFields(errs []string) bool {
	for _, e := range errs {
		if !strings.Contains(e, "not found in type") {
			return false
		}
	}
	return len(errs) > 0
}

// stripLines drops yaml's "line N: " prefixes.
func stripLines(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.HasPrefix(e, "line ") {
			if _, rest, ok := strings.Cut(e, ": "); ok {
				e = rest
			}
		}
		out = append(out, e)
	}
	return out
}

func applyEnv(cfg *Config) error {
	environ := map[string]string{}
	for _, kv := range lookupEnv() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, "HAPTICD_") {
			environ[k] = v
		}
	}
	if len(environ) == 0 {
		return nil
	}
	if err := env.Parse(cfg, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("config env: %w", err)
	}
	return nil
}

// DefaultAndValidate fills unset fields and rejects out-of-range values.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	h := &cfg.Haptic
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		h.Name = "vibrator"
	}
	if h.FrequencyHz == 0 {
		h.FrequencyHz = 22222
	}
	if h.FrequencyHz < 0 || h.FrequencyHz > 1_000_000_000 {
		return fmt.Errorf("haptic.frequency_hz must be in 1..1000000000")
	}
	if h.DutyPercent == 0 {
		h.DutyPercent = 33
	}
	if h.DutyPercent < 1 || h.DutyPercent > 100 {
		return fmt.Errorf("haptic.duty_percent must be in 1..100")
	}
	if h.StartupPulse == 0 {
		h.StartupPulse = 10 * time.Millisecond
	}
	if h.StartupPulse < 0 || h.StartupPulse > time.Second {
		return fmt.Errorf("haptic.startup_pulse must be in 0..1s")
	}

	h.PWM.Backend = strings.ToLower(strings.TrimSpace(h.PWM.Backend))
	if h.PWM.Backend == "" {
		h.PWM.Backend = "sysfs"
	}
	switch h.PWM.Backend {
	case "sysfs", "sim":
	default:
		return fmt.Errorf("haptic.pwm.backend must be 'sysfs' or 'sim'")
	}
	if h.PWM.Channel == nil {
		v := 1
		h.PWM.Channel = &v
	}
	if *h.PWM.Channel < 0 {
		return fmt.Errorf("haptic.pwm.channel must be >= 0")
	}

	l := &h.EnableLine
	l.Backend = strings.ToLower(strings.TrimSpace(l.Backend))
	if l.Backend == "" {
		l.Backend = "gpiocdev"
	}
	if l.Pin == nil {
		v := 17
		l.Pin = &v
	}
	switch l.Backend {
	case "gpiocdev":
		if strings.TrimSpace(l.Line) == "" {
			l.Line = fmt.Sprintf("GPIO%d", *l.Pin)
		}
	case "gpiomem", "memmap":
		if *l.Pin < 0 || *l.Pin > 53 {
			return fmt.Errorf("haptic.enable_line.pin must be in 0..53")
		}
	case "sim":
	default:
		return fmt.Errorf("haptic.enable_line.backend must be one of 'gpiocdev', 'gpiomem', 'memmap', 'sim'")
	}

	if strings.TrimSpace(cfg.Web.Listen) == "" {
		cfg.Web.Listen = ":8080"
	}

	m := &cfg.MQTT
	if m.Port == 0 {
		m.Port = 1883
	}
	if m.Port < 0 || m.Port > 65535 {
		return fmt.Errorf("mqtt.port must be in 1..65535")
	}
	if m.ClientID == "" {
		m.ClientID = "hapticd"
	}
	m.TopicPrefix = strings.Trim(m.TopicPrefix, "/")
	if m.TopicPrefix == "" {
		m.TopicPrefix = "hapticd"
	}
	if (m.ClientCert == "") != (m.ClientKey == "") {
		return fmt.Errorf("mqtt.client_cert and mqtt.client_key must be set together")
	}

	in := &cfg.Input
	if in.ClickMs == 0 {
		in.ClickMs = 20
	}
	if in.ClickMs < 0 || in.ClickMs > maxTimeoutMs {
		return fmt.Errorf("input.click_ms must be in 1..%d", maxTimeoutMs)
	}
	if in.ClickDuty < 0 || in.ClickDuty > 100 {
		return fmt.Errorf("input.click_duty must be in 0..100")
	}

	return nil
}
