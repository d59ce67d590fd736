package httpapi

// Config defines the httpapi module settings.
type Config struct {
	// Addr is the listen address. ":0" picks a free port; the bound address
	// is published at state path "httpapi.addr".
	Addr string `yaml:"addr" toml:"addr" env:"HTTPAPI_ADDR"`
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8770"
	}
}
