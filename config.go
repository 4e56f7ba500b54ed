// CLAUDE:SUMMARY Top-level YAML configuration and steps-file loading with defaults.
package domreplay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domreplay/resolve"
	"github.com/hazyhaar/domreplay/runner"
)

// BrowserConfig controls the Chrome connection for live runs.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty = launch.
	Remote string `yaml:"remote"`

	Headful bool `yaml:"headful"`

	// Stealth applies evasions to new pages. Default: on.
	Stealth *bool `yaml:"stealth"`

	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// Config is the top-level replayer configuration.
type Config struct {
	Browser  BrowserConfig   `yaml:"browser"`
	Resolver resolve.Options `yaml:"resolver"`
	Run      runner.Options  `yaml:"run"`

	// JournalPath enables the SQLite run journal when non-empty.
	JournalPath string `yaml:"journal_path"`

	// ReportAddr enables the HTTP status surface when non-empty.
	ReportAddr string `yaml:"report_addr"`
}

func (c *Config) applyDefaults() {
	if c.Browser.Stealth == nil {
		on := true
		c.Browser.Stealth = &on
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("domreplay: parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// StepsFile is a recorded step sequence against one page.
type StepsFile struct {
	// Name labels the sequence in logs and the journal.
	Name string `yaml:"name"`

	// URL is the page to open before replaying.
	URL string `yaml:"url"`

	Steps []runner.Step `yaml:"steps"`
}

// LoadStepsFile reads a YAML steps file and fills in missing step IDs.
func LoadStepsFile(path string) (*StepsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf StepsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("domreplay: parse steps %s: %w", path, err)
	}
	if len(sf.Steps) == 0 {
		return nil, fmt.Errorf("domreplay: steps file %s: %w", path, runner.ErrNoSteps)
	}
	for i := range sf.Steps {
		if sf.Steps[i].ID == "" {
			sf.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
		if sf.Steps[i].Action == "" {
			sf.Steps[i].Action = runner.ActionAssert
		}
	}
	return &sf, nil
}
