package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// jsonData decodes the "data" payload of a JSON response envelope.
func jsonData(t *testing.T, out string) map[string]any {
	t.Helper()

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

// newWorkspace prepares a temp dir with a key, inputs, and results, and
// returns (dbPath, keyPath, inputsPath, resultsPath).
func newWorkspace(t *testing.T) (string, string, string, string) {
	t.Helper()

	dir := t.TempDir()
	db := filepath.Join(dir, "ledger.db")
	key := filepath.Join(dir, "solver.key")
	inputs := filepath.Join(dir, "inputs.json")
	results := filepath.Join(dir, "results.json")

	_, err := runCLI(t, "keygen", "--out", key)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(inputs, []byte(`{"task":"ranking","depth":4}`), 0o644))
	require.NoError(t, os.WriteFile(results, []byte(`[{"candidate":"alpha","rank":1}]`), 0o644))

	return db, key, inputs, results
}

func submitArgs(db, key, inputs, results, criticality string) []string {
	return []string{
		"--format", "json", "submit",
		"--db", db, "--key", key,
		"--inputs", inputs, "--results", results,
		"--solver", "solver-7", "--phase", "execution",
		"--criticality", criticality,
		"--category", "ranking", "--type", "decision",
	}
}

func TestKeygen_WritesKeyAndRefusesOverwrite(t *testing.T) {
	key := filepath.Join(t.TempDir(), "solver.key")

	out, err := runCLI(t, "--format", "json", "keygen", "--out", key)
	require.NoError(t, err)
	data := jsonData(t, out)
	assert.NotEmpty(t, data["public_key"])

	info, err := os.Stat(key)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = runCLI(t, "keygen", "--out", key)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "keygen", "--out", key, "--force")
	assert.NoError(t, err)
}

func TestSubmit_BelowThresholdAppends(t *testing.T) {
	db, key, inputs, results := newWorkspace(t)

	out, err := runCLI(t, submitArgs(db, key, inputs, results, "1")...)
	require.NoError(t, err)

	data := jsonData(t, out)
	assert.Equal(t, "APPENDED", data["state"])
	assert.Equal(t, float64(0), data["seq"])
	assert.NotEmpty(t, data["chain_hash"])
}

func TestSubmit_EscalationDecideResolve(t *testing.T) {
	db, key, inputs, results := newWorkspace(t)

	// Default policy threshold is 3.
	out, err := runCLI(t, submitArgs(db, key, inputs, results, "3")...)
	require.NoError(t, err)

	data := jsonData(t, out)
	require.Equal(t, "AWAITING_APPROVAL", data["state"])
	ticket, _ := data["ticket"].(string)
	require.NotEmpty(t, ticket)

	_, err = runCLI(t, "decide", ticket, "--db", db, "--approve")
	require.NoError(t, err)

	// Deciding twice is refused.
	_, err = runCLI(t, "decide", ticket, "--db", db, "--reject")
	require.Error(t, err)

	out, err = runCLI(t, "resolve", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "appended at seq 0")

	out, err = runCLI(t, "--format", "json", "status", "--db", db)
	require.NoError(t, err)
	status := jsonData(t, out)
	assert.Equal(t, float64(1), status["entries"])
	assert.Equal(t, float64(0), status["pending_approvals"])
}

func TestDecide_RequiresExactlyOneDirection(t *testing.T) {
	db, _, _, _ := newWorkspace(t)

	_, err := runCLI(t, "decide", "some-ticket", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "decide", "some-ticket", "--db", db, "--approve", "--reject")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerify_CleanLedgerPasses(t *testing.T) {
	db, key, inputs, results := newWorkspace(t)

	_, err := runCLI(t, submitArgs(db, key, inputs, results, "1")...)
	require.NoError(t, err)

	out, err := runCLI(t, "verify", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Ledger integrity verified")
}

func TestQuery_JSONPage(t *testing.T) {
	db, key, inputs, results := newWorkspace(t)

	_, err := runCLI(t, submitArgs(db, key, inputs, results, "1")...)
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "query", "--db", db, "--category", "ranking")
	require.NoError(t, err)
	assert.Contains(t, out, `"snapshot_seq":0`)
	assert.Contains(t, out, `"chain_segment"`)

	// A filter that matches nothing still succeeds.
	out, err = runCLI(t, "--format", "json", "query", "--db", db, "--category", "absent")
	require.NoError(t, err)
	assert.Contains(t, out, `"entries":[]`)
}

func TestQuery_SingleSeqNotFound(t *testing.T) {
	db, key, inputs, results := newWorkspace(t)

	_, err := runCLI(t, submitArgs(db, key, inputs, results, "1")...)
	require.NoError(t, err)

	_, err = runCLI(t, "query", "--db", db, "--seq", "7")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestStatus_EmptyLedger(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := runCLI(t, "status", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "empty ledger")
}
