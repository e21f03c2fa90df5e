package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{" 3 "})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	_, err = parseSteps([]string{"0"})
	require.Error(t, err)
	_, err = parseSteps([]string{"x"})
	require.Error(t, err)
}

func TestParseVersionAndTarget(t *testing.T) {
	v, err := parseVersion("1771900000")
	require.NoError(t, err)
	assert.Equal(t, 1771900000, v)

	_, err = parseVersion("-1")
	require.Error(t, err)

	target, err := parseTarget("1771900100")
	require.NoError(t, err)
	assert.Equal(t, uint(1771900100), target)

	_, err = parseTarget("next")
	require.Error(t, err)
}

func TestNormalizeDBURL(t *testing.T) {
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "true")
	assert.Equal(t,
		"postgres://localhost/granada?sslmode=disable&disable_prepared_binary_result=yes",
		normalizeDBURL("postgres://localhost/granada?sslmode=disable"))
	assert.Equal(t,
		"postgres://localhost/granada?disable_prepared_binary_result=yes",
		normalizeDBURL("postgres://localhost/granada"))
	assert.Equal(t,
		"postgres://localhost/granada?disable_prepared_binary_result=no",
		normalizeDBURL("postgres://localhost/granada?disable_prepared_binary_result=no"))

	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "false")
	assert.Equal(t, "postgres://localhost/granada", normalizeDBURL("postgres://localhost/granada"))
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"up", "down", "version", "force", "goto"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestMigratorRequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	_, err := newMigrator()
	require.Error(t, err)
}
