package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/distortec/gokernel/thread"
)

func TestSpawnStartsThreadAndRegistersInGroup(t *testing.T) {
	k := NewKernel(DefaultConfig(), zap.NewNop().Sugar())
	done := make(chan struct{})
	th := k.Spawn("worker", 3, thread.PolicyFIFO, func() { close(done) })

	assert.Equal(t, 1, k.Threads.Count())
	assert.Contains(t, k.Threads.Threads(), th.TCB())
	assert.True(t, waitWithDeadline(done, time.Second))
}

func TestDefaultConfigMatchesSpecTunables(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.Quantum)
	assert.Equal(t, 4096, cfg.StackSize)
	assert.Equal(t, 8, cfg.MaxQueuedSignals)
	assert.Equal(t, 8, cfg.MaxSignalAssociations)
}
