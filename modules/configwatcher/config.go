package configwatcher

// Config defines the configwatcher module settings.
type Config struct {
	// Path is the settings file to watch. YAML.
	Path string `yaml:"path" toml:"path" env:"SETTINGS_PATH"`

	// StatePrefix is the state path the file's keys are mirrored under.
	StatePrefix string `yaml:"statePrefix" toml:"statePrefix" env:"SETTINGS_STATE_PREFIX"`
}

func (c *Config) applyDefaults() {
	if c.StatePrefix == "" {
		c.StatePrefix = "settings"
	}
}
