package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format selects the persisted encoding.
type Format string

const (
	// FormatYAML is the human-readable, comment-tolerant text encoding.
	FormatYAML Format = "yaml"
	// FormatBinary is the msgpack encoding of the identical schema, used for
	// distribution builds.
	FormatBinary Format = "binary"
)

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatBinary {
		return "chart"
	}
	return "yaml"
}

// EncodeYAML renders the chart as YAML text.
func EncodeYAML(c *Chart) ([]byte, error) {
	return yaml.Marshal(c)
}

// DecodeYAML parses a YAML chart. Comments in the document are tolerated.
func DecodeYAML(data []byte) (*Chart, error) {
	var c Chart
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChart, err)
	}
	return &c, nil
}

// EncodeBinary renders the chart in the compact binary encoding.
func EncodeBinary(c *Chart) ([]byte, error) {
	return msgpack.Marshal(c)
}

// DecodeBinary parses a binary chart.
func DecodeBinary(data []byte) (*Chart, error) {
	var c Chart
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChart, err)
	}
	return &c, nil
}

// WriteFile persists the chart at path in the given format, creating parent
// directories as needed.
func WriteFile(path string, c *Chart, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatBinary:
		data, err = EncodeBinary(c)
	default:
		data, err = EncodeYAML(c)
	}
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads a chart back, picking the encoding from the extension
// (.chart is binary, anything else is YAML), validates it, and auto-bridges
// path gaps. Warnings from bridging are returned alongside the chart.
func LoadFile(path string) (*Chart, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var c *Chart
	if strings.EqualFold(filepath.Ext(path), ".chart") {
		c, err = DecodeBinary(data)
	} else {
		c, err = DecodeYAML(data)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	warnings := c.BridgeGaps()
	return c, warnings, nil
}

// WriteMetadata persists song metadata as YAML.
func WriteMetadata(path string, m *Metadata) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadMetadata reads song metadata back.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}
