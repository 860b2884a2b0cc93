package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["scenario"])
	assert.True(t, names["bench"])
}

func TestFlagsConfigTranslatesOverrides(t *testing.T) {
	f := &flags{quantum: 9, stackSize: 1024, maxQueuedSignals: 2, maxSignalAssociations: 3}
	cfg := f.config()
	assert.Equal(t, 9, cfg.Quantum)
	assert.Equal(t, 1024, cfg.StackSize)
	assert.Equal(t, 2, cfg.MaxQueuedSignals)
	assert.Equal(t, 3, cfg.MaxSignalAssociations)
}
