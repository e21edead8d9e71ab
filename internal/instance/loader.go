// Package instance reads problem instances from YAML or JSON documents.
package instance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"cvrp-router/internal/models"
)

// Format is the encoding of an instance document
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension; anything other
// than .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and validates an instance file
func Load(path string) (*models.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance file: %w", err)
	}
	inst, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if inst.Name == "" {
		inst.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return inst, nil
}

// Parse decodes an instance document and validates it. Unknown fields are
// rejected so typos surface instead of silently defaulting.
func Parse(data []byte, format Format) (*models.Instance, error) {
	var inst models.Instance
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&inst); err != nil {
			return nil, fmt.Errorf("failed to parse instance JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&inst); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to parse instance YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported instance format %q", format)
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Write encodes an instance in the given format
func Write(w io.Writer, inst *models.Instance, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inst)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(inst); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported instance format %q", format)
}
