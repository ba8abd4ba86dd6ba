package launcher

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-chainstate/chainstore"
	"github.com/rony4d/go-chainstate/inter/chaininfo"
	"github.com/rony4d/go-chainstate/utils/unittest"
)

// run executes the tool against datadir and returns what the commands printed.
func run(t *testing.T, datadir string, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &logs
	full := append([]string{"chainstate", "--datadir", datadir, "--log.verbosity", "1"}, args...)
	err := app.Run(full)
	return out.String(), err
}

func writeJSON(t *testing.T, dir, name string, cs chaininfo.ChainState) string {
	t.Helper()
	data, err := chainstore.MarshalJSON(cs)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeBinary(t *testing.T, dir, name string, cs chaininfo.ChainState) string {
	t.Helper()
	data, err := chainstore.Encode(cs)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeJSON(t, dir, "good.json", unittest.BabeChainStateFixture(10))
	genesis := writeBinary(t, dir, "genesis.bin", unittest.AuraGenesisFixture())

	out, err := run(t, dir, "validate", good, genesis)
	require.NoError(t, err)
	assert.Contains(t, out, good+": ok (finalized #10)")
	assert.Contains(t, out, genesis+": ok (finalized #0)")

	bad := unittest.BabeChainStateFixture(10)
	bad.Finality = chaininfo.GrandpaFinality{
		AuthoritiesSetID:     1,
		TriggeredAuthorities: unittest.AuthorityListFixture(2),
		ScheduledChange:      &chaininfo.GrandpaScheduledChange{TriggerHeight: 10},
	}
	badPath := writeJSON(t, dir, "bad.json", bad)
	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte{0xff, 0x00}, 0o600))

	_, err = run(t, dir, "validate", "--workers", "2", good, badPath, garbage)
	require.Error(t, err)
	assert.ErrorIs(t, err, chaininfo.ErrScheduledGrandpaChangeBeforeFinalized)
	assert.Contains(t, err.Error(), badPath)
	assert.Contains(t, err.Error(), garbage)
	assert.NotContains(t, err.Error(), good+":")
}

func TestGenesisImportInspectExport(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "genesis", "--fakenet", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "finalized #0")
	assert.Contains(t, out, "consensus=babe finality=grandpa")

	_, err = run(t, dir, "genesis", "--fakenet", "3")
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	next := writeBinary(t, dir, "next.bin", unittest.BabeChainStateFixture(42))
	out, err = run(t, dir, "import", next)
	require.NoError(t, err)
	assert.Contains(t, out, "finalized #42")

	older := writeJSON(t, dir, "older.json", unittest.BabeChainStateFixture(41))
	_, err = run(t, dir, "import", older)
	assert.Error(t, err)

	out, err = run(t, dir, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "finalized #42")
	assert.Contains(t, out, `"engine": "babe"`)

	exported := filepath.Join(dir, "exported.json")
	_, err = run(t, dir, "export", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	cs, err := chainstore.ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, unittest.BabeChainStateFixture(42), cs)
}

func TestInspectFallback(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "genesis", "--fakenet", "2")
	require.NoError(t, err)
	_, err = run(t, dir, "import", writeBinary(t, dir, "next.bin", unittest.BabeChainStateFixture(5)))
	require.NoError(t, err)

	// Overwrite the latest snapshot the way an operator editing the database would.
	bad := unittest.BabeChainStateFixture(5)
	bad.FinalizedHeader = unittest.HeaderFixture(5, unittest.WithAuraDigest(1005))
	db, err := leveldb.New(filepath.Join(dir, "chaindata"), 16, 16, "", false)
	require.NoError(t, err)
	key := append([]byte("s"), bigendian.Uint64ToBytes(5)...)
	require.NoError(t, db.Put(key, mustEncode(t, bad)))
	require.NoError(t, db.Close())

	_, err = run(t, dir, "inspect")
	assert.ErrorIs(t, err, chaininfo.ErrConsensusAlgorithmMismatch)

	out, err := run(t, dir, "inspect", "--fallback")
	require.NoError(t, err)
	assert.Contains(t, out, "finalized #0")
}

func TestCommandsArguments(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "validate")
	assert.Error(t, err)
	_, err = run(t, dir, "genesis")
	assert.Error(t, err)
	_, err = run(t, dir, "genesis", "--fakenet=-1")
	assert.Error(t, err)
	_, err = run(t, dir, "genesis", "--fakenet=0")
	assert.Error(t, err)
	_, err = run(t, dir, "import")
	assert.Error(t, err)
	_, err = run(t, dir, "export")
	assert.Error(t, err)
	_, err = run(t, dir, "--inmemory", "inspect")
	assert.ErrorIs(t, err, chainstore.ErrNotFound)
}

func mustEncode(t *testing.T, cs chaininfo.ChainState) []byte {
	t.Helper()
	raw, err := chainstore.Encode(cs)
	require.NoError(t, err)
	return raw
}
