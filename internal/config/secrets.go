package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Secrets is a namespaced key/value file, e.g.
//
//	google:
//	  api_key: "..."
type Secrets map[string]map[string]string

// LoadSecrets reads a secrets file. A missing file yields empty secrets.
func LoadSecrets(path string) (Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Secrets{}, nil
		}
		return nil, err
	}
	var s Secrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse secrets %s: %w", path, err)
	}
	if s == nil {
		s = Secrets{}
	}
	return s, nil
}

// Get returns the value under namespace.key, or "".
func (s Secrets) Get(namespace, key string) string {
	return s[namespace][key]
}
