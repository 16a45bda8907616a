package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/flowpipe/errors"
)

const (
	maxConfigSize = 10 << 20 // 10MB
	maxJSONDepth  = 100
)

// Format names a configuration syntax.
type Format string

// Supported formats
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", errors.WrapInvalid(
		fmt.Errorf("%w: unsupported extension %q", errors.ErrInvalidConfig, filepath.Ext(path)),
		"config", "FormatFromPath", "detect format")
}

// Load reads and parses the configuration file at path.
func Load(path string) (Tree, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	tree, err := parse(data, format, path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", fmt.Sprintf("parse %s", path))
	}
	return tree, nil
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) (Tree, error) {
	return parse(data, format, "config."+string(format))
}

func parse(data []byte, format Format, filename string) (Tree, error) {
	switch format {
	case FormatJSON:
		return parseJSON(data)
	case FormatYAML:
		return parseYAML(data)
	case FormatHCL:
		return parseHCL(data, filename)
	}
	return nil, errors.WrapInvalid(
		fmt.Errorf("%w: unknown format %q", errors.ErrInvalidConfig, format), "config", "Parse", "select parser")
}

func parseJSON(data []byte) (Tree, error) {
	if err := validateJSONDepth(data); err != nil {
		return nil, parsingFailed(err, "json")
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, parsingFailed(err, "json")
	}
	return Tree(raw), nil
}

// parseYAML decodes YAML and normalizes it through JSON so numbers and maps have
// the same shape as the other formats.
func parseYAML(data []byte) (Tree, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, parsingFailed(err, "yaml")
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, parsingFailed(err, "yaml")
	}
	return parseJSON(normalized)
}

func parsingFailed(err error, format string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrParsingFailed, err), "config", "Parse", "decode "+format)
}

func safeReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path), "config", "Load", "stat file")
		}
		return nil, errors.WrapInvalid(err, "config", "Load", "stat file")
	}
	if !info.Mode().IsRegular() {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: not a regular file: %s", errors.ErrInvalidConfig, path), "config", "Load", "stat file")
	}
	if info.Size() > maxConfigSize {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: config file too large: %d bytes > %d", errors.ErrInvalidConfig, info.Size(), maxConfigSize),
			"config", "Load", "stat file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "read file")
	}
	return data, nil
}

// validateJSONDepth rejects documents nested deeper than maxJSONDepth before they
// reach the decoder.
func validateJSONDepth(data []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range data {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString:
		case b == '{' || b == '[':
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("JSON nesting too deep: %d > %d", depth, maxJSONDepth)
			}
		case b == '}' || b == ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("malformed JSON: unbalanced brackets")
			}
		}
	}
	return nil
}
