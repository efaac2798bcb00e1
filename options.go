package main

// Options holds the CLI configuration for one invocation of protoxref,
// merged from flags and an optional .protoxref.toml file.
type Options struct {
	ProtoMessage string
	Substitution multiFlag // "virtual=real" entries, applied in order given
	SchemaFiles  multiFlag // shared .proto dependencies for -batch and -watch-interval modes

	SinkBackend string // "memory", "json" or "postgres"
	JSONOutPath string
	PostgresDSN string

	S3 S3Config

	LogLevel string
	Verbose  bool

	Batch         bool
	WatchInterval string
	WatchDir      string

	ConfigFile string
}
