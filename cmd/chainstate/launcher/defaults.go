package launcher

// Defaults bundles the baseline configuration values the launcher uses before presets,
// config files and flags override them. Resource sizes live in the integration presets.

type Defaults struct {
	Storage StorageDefaults
	Logging LoggingDefaults
}

// StorageDefaults locates the chain state database.
type StorageDefaults struct {
	DataDir  string //	Filesystem root where the tool keeps its database. Changing it lets you track several chains side by side.
	DBPath   string //	Name of the leveldb directory inside DataDir.
	Preset   string //	Resource profile applied before config files and flags (see integration presets).
	InMemory bool   //	When true, nothing is written to disk; only useful for dry runs and tests.
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    //	Log level numeric (0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace).
	Format    string //	Log output format (text vs json).
	Color     bool   //	Whether to use ANSI color codes in logs (helpful on terminals, best disabled when piping to files).
	SentryDSN string //	Sentry endpoint receiving error level entries; empty disables the hook.
}

// DefaultConfig returns a fully populated Defaults instance.

func DefaultConfig() Defaults {
	return Defaults{
		Storage: StorageDefaults{
			DataDir:  "~/.chainstate",
			DBPath:   "chaindata",
			Preset:   "default",
			InMemory: false,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     false,
		},
	}
}
