package badgerstore

import "time"

// Config is the local-file backend configuration.
type Config struct {
	Path       string        `env:"BADGER_PATH" envDefault:"./data/courier"`
	InMemory   bool          `env:"BADGER_IN_MEMORY" envDefault:"false"`
	GCInterval time.Duration `env:"BADGER_GC_INTERVAL" envDefault:"10m"`
}
