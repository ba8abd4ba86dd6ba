package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-chainstate/flags"
)

var app = newApp()

func newApp() *cli.App {
	app := flags.NewApp("Validate, store and inspect the trusted finalized chain state")
	app.Flags = flags.Merge(flags.CommonFlags(), flags.StoreFlags())
	app.Commands = []cli.Command{
		validateCommand,
		genesisCommand,
		importCommand,
		inspectCommand,
		exportCommand,
	}
	return app
}

// Launch runs the command line tool with the given arguments, program name included.
func Launch(args []string) error {
	return app.Run(args)
}
