package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SinkFile holds the webhook credentials kept outside the environment. The
// file is flat YAML; an existing JSON config.json parses unchanged.
type SinkFile struct {
	SlackHookURL  string `yaml:"slackhookurl"`
	SlackChannel  string `yaml:"slackchannel"`
	SlackUsername string `yaml:"slackusername"`
	SlackIcon     string `yaml:"slackicon"`
}

// LoadSinkFile reads the alert-sink credentials at path. A missing file
// yields an empty SinkFile and no error.
func LoadSinkFile(path string) (SinkFile, error) {
	var sf SinkFile
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sf, nil
	}
	if err != nil {
		return sf, fmt.Errorf("read alert config: %w", err)
	}
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return SinkFile{}, fmt.Errorf("parse alert config %s: %w", path, err)
	}
	return sf, nil
}

// WebhookEnabled reports whether a webhook URL was configured.
func (s SinkFile) WebhookEnabled() bool {
	return s.SlackHookURL != ""
}
