package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/norasector/davishop/pkg/davis"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Band               string              `yaml:"band"`
	Stations           []Station           `yaml:"stations"`
	QueueSize          int                 `yaml:"queue_size"`
	PollInterval       time.Duration       `yaml:"poll_interval"`
	StatsInterval      time.Duration       `yaml:"stats_interval"`
	Timing             Timing              `yaml:"timing"`
	Device             string              `yaml:"device"`
	PlaybackLocation   string              `yaml:"playback_location"`
	OutputDestinations []OutputDestination `yaml:"output_destinations"`
	PrintRecords       bool                `yaml:"print_records"`
	StatusServer       struct {
		Port int `yaml:"port"`
	} `yaml:"status_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Token        string `yaml:"token"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

// Timing overrides the protocol timing constants. Zero values keep defaults.
type Timing struct {
	TuneIn          time.Duration `yaml:"tune_in"`
	LatePacket      time.Duration `yaml:"late_packet"`
	DiscoveryStep   time.Duration `yaml:"discovery_step"`
	ResyncThreshold int           `yaml:"resync_threshold"`
}

// maxTiming is the longest span the wrapping microsecond counter can order.
const maxTiming = (1 << 31) * time.Microsecond

// Validate rejects durations the microsecond counter cannot represent.
func (t Timing) Validate() error {
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"tune_in", t.TuneIn},
		{"late_packet", t.LatePacket},
		{"discovery_step", t.DiscoveryStep},
	} {
		if d.value < 0 || d.value > maxTiming {
			return fmt.Errorf("timing %s %v: must be between 0 and %v", d.name, d.value, maxTiming)
		}
	}
	if t.ResyncThreshold < 0 {
		return fmt.Errorf("timing resync_threshold %d: must not be negative", t.ResyncThreshold)
	}
	return nil
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Station struct {
	ID       uint8             `yaml:"id"`
	Type     davis.StationType `yaml:"type"`
	Active   bool              `yaml:"active"`
	Repeater string            `yaml:"repeater"`
}

// RepeaterID maps repeater letters A..H to ids 0x8..0xF. No repeater is 0.
func (s Station) RepeaterID() (uint8, error) {
	r := strings.ToUpper(strings.TrimSpace(s.Repeater))
	switch {
	case r == "":
		return 0, nil
	case len(r) == 1 && r[0] >= 'A' && r[0] <= 'H':
		return 0x8 + r[0] - 'A', nil
	default:
		return 0, fmt.Errorf("repeater %q: must be A through H", s.Repeater)
	}
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(contents)
}

func Parse(contents []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling yaml: %w", err)
	}
	if cfg.Band == "" {
		cfg.Band = string(davis.BandUS)
	}
	if _, err := davis.ParseBand(cfg.Band); err != nil {
		return nil, err
	}
	if err := cfg.Timing.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
