package scheduler

// JobConfig pairs a cron spec with the bus event it fires.
type JobConfig struct {
	// Spec is a cron expression with seconds, e.g. "*/30 * * * * *".
	Spec string `yaml:"spec" toml:"spec"`

	// Event is the bus event name emitted on each tick. Payload is the tick
	// time.
	Event string `yaml:"event" toml:"event"`
}

// Config defines the scheduler module settings.
type Config struct {
	// Jobs lists the schedules to run.
	Jobs []JobConfig `yaml:"jobs" toml:"jobs"`
}
