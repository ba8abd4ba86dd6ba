package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// StoreFlags tune the chain state database.

func StoreFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "inmemory",
			Usage: "Keep the database in memory only (nothing survives the process)",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Number of validated snapshots kept in memory",
		},
		cli.IntFlag{
			Name:  "db.cache",
			Usage: "Megabytes of memory allocated to the database",
		},
		cli.IntFlag{
			Name:  "db.handles",
			Usage: "Number of file handles allocated to the database",
		},
		cli.Uint64Flag{
			Name:  "retain",
			Usage: "Number of snapshots kept on disk (0 keeps all of them)",
		},
	}
}

// Command specific flags.
var (
	WorkersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "Number of files validated concurrently",
	}
	FallbackFlag = cli.BoolFlag{
		Name:  "fallback",
		Usage: "Fall back to the last snapshot that still validates when the latest one doesn't",
	}
	FakeNetFlag = cli.IntFlag{
		Name:  "fakenet",
		Usage: "Build the genesis of a local test network with N authorities instead of reading a file",
	}
)
