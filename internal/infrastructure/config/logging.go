package config

// LoggingConfig controls the operational log and the request audit
// stream. Operational lines go through the standard logger; the audit
// stream is one JSON line per HTTP request and follows Output.
type LoggingConfig struct {
	// Minimum operational log level: debug, info, warn, error.
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`

	// Format of the audit stream. Only json is emitted today; text is
	// accepted so existing deployments keep validating.
	Format string `mapstructure:"format" validate:"required,oneof=json text"`

	// Output names the audit sink: stdout, stderr or file.
	Output string `mapstructure:"output" validate:"required,oneof=stdout stderr file"`

	// FilePath receives the audit stream when Output is "file". The
	// daemon appends and never rotates; see Rotation.
	FilePath string `mapstructure:"file_path" validate:"required_if=Output file"`

	// Rotation knobs are accepted for operators that provision logrotate
	// around the audit file; the daemon itself does not rotate.
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig mirrors the usual logrotate knobs for the audit file.
type RotationConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Size in megabytes at which the external rotator should cut over.
	MaxSize int `mapstructure:"max_size" validate:"min=1"`

	// Rotated files to keep before deletion.
	MaxBackups int `mapstructure:"max_backups" validate:"min=0"`

	// Days to keep rotated files.
	MaxAge int `mapstructure:"max_age" validate:"min=0"`

	Compress bool `mapstructure:"compress"`
}
