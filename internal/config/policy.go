package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyEntry is one category in the policy file. Omitting a list leaves that
// check disabled for the category.
type PolicyEntry struct {
	AllowedExtensions       []string `yaml:"allowed_extensions"`
	AllowedMimeTypePrefixes []string `yaml:"allowed_mime_type_prefixes"`
}

// PolicyFile is the YAML document:
//
//	file_types:
//	  form_media:
//	    allowed_mime_type_prefixes: [image, audio, video]
type PolicyFile struct {
	FileTypes map[string]PolicyEntry `yaml:"file_types"`
}

// LoadPolicyFile reads a policy table from disk
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy table
func ParsePolicy(data []byte) (*PolicyFile, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if len(pf.FileTypes) == 0 {
		return nil, fmt.Errorf("policy file defines no file_types")
	}
	return &pf, nil
}
