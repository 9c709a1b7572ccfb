package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandExposesAllOperations(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}

	for _, name := range []string{
		"init", "add", "get", "query", "grant", "revoke", "break-glass", "audit", "levels",
	} {
		assert.True(t, names[name], "missing subcommand %s", name)
	}
}

func TestAddCommandFlags(t *testing.T) {
	cmd := addCmd()

	for _, name := range []string{"patient", "type", "data", "level"} {
		require.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := queryCmd()

	for _, name := range []string{"patient", "requester", "role"} {
		require.NotNil(t, cmd.Flags().Lookup(name), "missing flag --%s", name)
	}
}
