package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeMain(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MainFileName), []byte(content), 0o644))
}

func TestStore_LoadFollowsIncludes(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2026"), 0o755))
	monthly := "2026-03-14 * \"Vidéotron\" \"\"\n" +
		"  Expenses:Office:Telecom                                  90.00 CAD\n" +
		"  Assets:Bank:Checking                                    -90.00 CAD\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026", "03.beancount"), []byte(monthly), 0o644))

	writeMain(t, dir, "2026-01-01 open Assets:Bank:Checking CAD\n"+
		"2026-01-01 open Expenses:Office:Telecom CAD\n"+
		"include \"2026/03.beancount\"\n")

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, snap.Errors)
	assert.Len(t, snap.Opens(), 2)
	require.Len(t, snap.Transactions(), 1)
	assert.Equal(t, "Vidéotron", snap.Transactions()[0].Payee)
}

func TestStore_LoadReportsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "boucle.beancount"),
		[]byte("include \""+MainFileName+"\"\n"), 0o644))
	writeMain(t, dir, "2026-01-01 open Assets:Bank:Checking CAD\n"+
		"include \"boucle.beancount\"\n")

	snap, err := store.Load()
	require.NoError(t, err)
	require.NotEmpty(t, snap.Errors)
	var perr *ParseError
	require.ErrorAs(t, snap.Errors[0], &perr)
	assert.Contains(t, perr.Msg, "include cycle")

	// Loading still produced the directives outside the cycle.
	assert.Len(t, snap.Opens(), 1)
}

func TestStore_LoadReportsSelfInclude(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))
	writeMain(t, dir, "include \""+MainFileName+"\"\n")

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.Errors, 1)
	var perr *ParseError
	require.ErrorAs(t, snap.Errors[0], &perr)
	assert.Contains(t, perr.Msg, "include cycle")
}

func TestStore_LoadReportsImbalance(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))

	writeMain(t, dir, "2026-03-14 * \"X\" \"\"\n"+
		"  Expenses:Meals                                           10.00 CAD\n"+
		"  Assets:Bank:Checking                                     -9.99 CAD\n")

	snap, err := store.Load()
	require.NoError(t, err)
	require.Len(t, snap.Errors, 1)
	var balErr *BalanceError
	assert.ErrorAs(t, snap.Errors[0], &balErr)
}

func TestStore_WriteMonthlyCreatesWithHeader(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))

	entry := "\n2026-05-02 * \"Metro\" \"\"\n" +
		"  Expenses:Meals                                           25.00 CAD\n" +
		"  Assets:Bank:Checking                                    -25.00 CAD\n"
	path, err := store.WriteEntriesToMonthlyFile(2026, 5, entry)
	require.NoError(t, err)
	assert.Equal(t, store.MonthlyPath(2026, 5), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), Header()))

	// Second write appends without duplicating the header.
	_, err = store.WriteEntriesToMonthlyFile(2026, 5, entry)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "option \"name_assets\""))
	assert.Equal(t, 2, strings.Count(string(data), "Metro"))
}

func TestStore_EnsureIncludeIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))
	writeMain(t, dir, Header())

	require.NoError(t, store.EnsureInclude("2026/05.beancount"))
	require.NoError(t, store.EnsureInclude("2026/05.beancount"))

	data, err := os.ReadFile(store.MainPath())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "include \"2026/05.beancount\""))
}

func TestStore_ValidateNonzeroExit(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zaptest.NewLogger(t))
	store.SetChecker("false")

	ok, _, err := store.Validate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
