package launcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-chainstate/anchor"
	"github.com/rony4d/go-chainstate/chainstore"
	"github.com/rony4d/go-chainstate/flags"
	"github.com/rony4d/go-chainstate/genesis"
	"github.com/rony4d/go-chainstate/inter/chaininfo"
)

// ErrAlreadyInitialized is returned by the genesis command on a database holding snapshots.
var ErrAlreadyInitialized = errors.New("database already holds a chain state")

var (
	validateCommand = cli.Command{
		Name:      "validate",
		Usage:     "Check that chain state files are coherent",
		ArgsUsage: "FILE...",
		Flags:     []cli.Flag{flags.WorkersFlag},
		Action:    validateAction,
		Description: `
Each file holds one chain state, either in JSON or in the binary snapshot
encoding. Files are checked concurrently and every failure is reported.`,
	}
	genesisCommand = cli.Command{
		Name:      "genesis",
		Usage:     "Initialize the database with the chain state of block #0",
		ArgsUsage: "[FILE]",
		Flags:     []cli.Flag{flags.FakeNetFlag},
		Action:    genesisAction,
	}
	importCommand = cli.Command{
		Name:      "import",
		Usage:     "Advance the trusted chain state to the one held in a file",
		ArgsUsage: "FILE",
		Action:    importAction,
	}
	inspectCommand = cli.Command{
		Name:   "inspect",
		Usage:  "Print the trusted chain state",
		Flags:  []cli.Flag{flags.FallbackFlag},
		Action: inspectAction,
	}
	exportCommand = cli.Command{
		Name:      "export",
		Usage:     "Write the trusted chain state as JSON (- for stdout)",
		ArgsUsage: "FILE",
		Action:    exportAction,
	}
)

// setup builds the config and the logger every command starts with.
func setup(ctx *cli.Context) (Config, *logrus.Logger, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return Config{}, nil, err
	}
	logger, err := SetupLogging(cfg.Logging, ctx.App.ErrWriter)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, logger, nil
}

func openStore(cfg Config, logger logrus.FieldLogger, readonly bool) (*chainstore.Store, error) {
	if cfg.Store.InMemory {
		return chainstore.NewMemory(cfg.Store.ChainStore(), logger)
	}
	if err := ensureDir(cfg.DataDir); err != nil {
		return nil, err
	}
	return chainstore.OpenLevelDB(cfg.DBPath(), cfg.Store.ChainStore(), readonly, logger)
}

// readChainState reads a file holding a chain state in JSON or in the snapshot encoding.
func readChainState(path string) (chaininfo.ChainState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chaininfo.ChainState{}, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return chainstore.ParseJSON(trimmed)
	}
	return chainstore.Decode(data)
}

func describe(w io.Writer, v *chaininfo.ValidatedChainState) {
	cs := v.ChainState()
	fmt.Fprintf(w, "finalized #%d %s consensus=%s finality=%s\n",
		v.FinalizedNumber(), v.FinalizedHash().String(), chaininfo.ConsensusEngine(cs.Consensus), chaininfo.FinalityEngine(cs.Finality))
}

func validateAction(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("validate: at least one file is required")
	}
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		result *multierror.Error
	)
	g.SetLimit(cfg.Validation.Workers)
	for _, path := range ctx.Args() {
		path := path
		g.Go(func() error {
			cs, err := readChainState(path)
			if err == nil {
				_, err = chaininfo.TryValidate(cs)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WithError(err).WithField("file", path).Warn("Invalid chain state")
				result = multierror.Append(result, fmt.Errorf("%s: %w", path, err))
				return nil
			}
			fmt.Fprintf(ctx.App.Writer, "%s: ok (finalized #%d)\n", path, cs.FinalizedNumber())
			return nil
		})
	}
	_ = g.Wait()
	return result.ErrorOrNil()
}

func genesisAction(ctx *cli.Context) error {
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	var gen genesis.Config
	switch {
	case ctx.IsSet(flags.FakeNetFlag.Name):
		n := ctx.Int(flags.FakeNetFlag.Name)
		if n < 1 {
			return fmt.Errorf("genesis: --%s expects a positive number of authorities, got %d", flags.FakeNetFlag.Name, n)
		}
		gen = genesis.FakeConfig(n)
	case ctx.NArg() == 1:
		if gen, err = genesis.LoadConfig(ctx.Args().First()); err != nil {
			return err
		}
	default:
		return errors.New("genesis: expected a configuration file or --fakenet")
	}
	v, err := gen.Build()
	if err != nil {
		return fmt.Errorf("genesis %q: %w", gen.Name, err)
	}

	store, err := openStore(cfg, logger, false)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Latest(); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, chainstore.ErrNotFound) {
		return err
	}
	if err := store.Put(v); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"chain": gen.Name, "hash": v.FinalizedHash().String()}).Info("Initialized chain state")
	describe(ctx.App.Writer, v)
	return nil
}

func importAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("import: expected exactly one file")
	}
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	candidate, err := readChainState(ctx.Args().First())
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger, false)
	if err != nil {
		return err
	}
	defer store.Close()

	trusted, err := store.Latest()
	if err != nil && !errors.Is(err, chainstore.ErrNotFound) {
		return fmt.Errorf("load trusted chain state: %w", err)
	}
	a := anchor.New(trusted, store, logger)
	defer a.Close()

	v, err := a.Advance(candidate)
	if err != nil {
		return err
	}
	describe(ctx.App.Writer, v)
	return nil
}

func loadTrusted(ctx *cli.Context, store *chainstore.Store, logger logrus.FieldLogger) (*chaininfo.ValidatedChainState, error) {
	v, err := store.Latest()
	if err == nil || errors.Is(err, chainstore.ErrNotFound) || !ctx.Bool(flags.FallbackFlag.Name) {
		return v, err
	}
	logger.WithError(err).Warn("Latest chain state unusable, falling back")
	return store.LastKnownGood()
}

func inspectAction(ctx *cli.Context) error {
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger, true)
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := loadTrusted(ctx, store, logger)
	if err != nil {
		return err
	}
	describe(ctx.App.Writer, v)
	out, err := chainstore.MarshalJSON(v.ChainState())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, string(out))
	return err
}

func exportAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("export: expected exactly one file")
	}
	cfg, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(cfg, logger, true)
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := store.Latest()
	if err != nil {
		return err
	}
	out, err := chainstore.MarshalJSON(v.ChainState())
	if err != nil {
		return err
	}
	if path := ctx.Args().First(); path != "-" {
		return os.WriteFile(path, out, 0o644)
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
