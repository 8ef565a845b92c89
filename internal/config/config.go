// Package config loads ingestion settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tbingest/internal/stream"
	"github.com/roach88/tbingest/internal/timestamp"
)

// DefaultChunkSize is the number of decompressed bytes read per transaction.
const DefaultChunkSize = 100_000_000

// Serial timestamp modes.
const (
	TimestampEpoch = "epoch"
	TimestampRaw   = "raw"
)

// Config holds every ingestion setting.
type Config struct {
	// ChunkSize bounds each read and therefore each transaction. It must be
	// much larger than the longest line.
	ChunkSize int `yaml:"chunk_size"`

	// Workers parallelizes field parsing within a chunk when > 1.
	Workers int `yaml:"workers"`

	// Vacuum compacts the database after both streams are ingested.
	Vacuum bool `yaml:"vacuum"`

	// MetricsFile, when set, receives the counters in Prometheus text format.
	MetricsFile string `yaml:"metrics_file"`

	Serial SerialConfig `yaml:"serial"`
	Server ServerConfig `yaml:"server"`
}

// SerialConfig configures the serial stream.
type SerialConfig struct {
	Codec stream.Codec `yaml:"codec"`

	// Timestamp is "epoch" (decimal epoch seconds on the device clock) or
	// "raw" (stored unchanged).
	Timestamp string `yaml:"timestamp"`

	// UTCOffset is the offset of the device clocks from UTC.
	UTCOffset time.Duration `yaml:"utc_offset"`
}

// ServerConfig configures the server stream.
type ServerConfig struct {
	Codec stream.Codec `yaml:"codec"`

	// TimestampLayout is a Go time layout.
	TimestampLayout string `yaml:"timestamp_layout"`

	// Timezone is an IANA name or "Local".
	Timezone string `yaml:"timezone"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		ChunkSize: DefaultChunkSize,
		Workers:   1,
		Vacuum:    true,
		Serial: SerialConfig{
			Codec:     stream.CodecAuto,
			Timestamp: TimestampEpoch,
			UTCOffset: timestamp.DefaultDeviceOffset,
		},
		Server: ServerConfig{
			Codec:           stream.CodecAuto,
			TimestampLayout: timestamp.ServerLayout,
			Timezone:        "Local",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Keys absent from the file keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid config: workers must be at least 1, got %d", c.Workers)
	}
	if !validCodec(c.Serial.Codec) {
		return fmt.Errorf("invalid config: serial.codec %q must be one of %v", c.Serial.Codec, stream.ValidCodecs)
	}
	if !validCodec(c.Server.Codec) {
		return fmt.Errorf("invalid config: server.codec %q must be one of %v", c.Server.Codec, stream.ValidCodecs)
	}
	if c.Serial.Timestamp != TimestampEpoch && c.Serial.Timestamp != TimestampRaw {
		return fmt.Errorf("invalid config: serial.timestamp %q must be %q or %q", c.Serial.Timestamp, TimestampEpoch, TimestampRaw)
	}
	if c.Server.TimestampLayout == "" {
		return errors.New("invalid config: server.timestamp_layout is empty")
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid config: server.timezone: %w", err)
	}
	return nil
}

// SerialNormalizer returns the timestamp normalizer of the serial stream.
func (c *Config) SerialNormalizer() timestamp.Normalizer {
	if c.Serial.Timestamp == TimestampRaw {
		return timestamp.Passthrough{}
	}
	return timestamp.Epoch{Offset: c.Serial.UTCOffset}
}

// ServerNormalizer returns the timestamp normalizer of the server stream.
func (c *Config) ServerNormalizer() (timestamp.Normalizer, error) {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server timezone: %w", err)
	}
	return timestamp.Layout{Layout: c.Server.TimestampLayout, Location: loc}, nil
}

func validCodec(codec stream.Codec) bool {
	for _, c := range stream.ValidCodecs {
		if c == codec {
			return true
		}
	}
	return false
}
