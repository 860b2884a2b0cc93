package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testKernel(t *testing.T) *Kernel {
	t.Helper()
	cfg := DefaultConfig()
	cfg.StackSize = 2048
	return NewKernel(cfg, zap.NewNop().Sugar())
}

func TestScenarioMutexPriorityInheritanceCompletes(t *testing.T) {
	k := testKernel(t)
	stop := startTickDriver(k)
	defer stop()

	done := scenarioMutexPriorityInheritance(k)
	assert.True(t, waitWithDeadline(done, 2*time.Second))
}

func TestScenarioSemaphoreProducerConsumerCompletes(t *testing.T) {
	k := testKernel(t)
	stop := startTickDriver(k)
	defer stop()

	done := scenarioSemaphoreProducerConsumer(k)
	assert.True(t, waitWithDeadline(done, 2*time.Second))
}

func TestScenarioSignalDeliveryCompletes(t *testing.T) {
	k := testKernel(t)
	stop := startTickDriver(k)
	defer stop()

	done := scenarioSignalDelivery(k)
	assert.True(t, waitWithDeadline(done, 2*time.Second))
}

func TestScenarioSleepTimeoutCompletes(t *testing.T) {
	k := testKernel(t)
	stop := startTickDriver(k)
	defer stop()

	done := scenarioSleepTimeout(k)
	assert.True(t, waitWithDeadline(done, 2*time.Second))
}

func TestRunScenarioRejectsUnknownName(t *testing.T) {
	k := testKernel(t)
	_, err := runScenario(k, "not-a-real-scenario")
	assert.Error(t, err)
}
