package main

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunGateRejectsOverlappingRuns(t *testing.T) {
	gate := &runGate{}
	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int64

	gate.Go(func() {
		runs.Add(1)
		close(started)
		<-release
	})
	<-started

	ran := gate.TryRun(func() {
		runs.Add(1)
	})
	require.False(t, ran)

	close(release)
	gate.Wait()
	require.Equal(t, int64(1), runs.Load())

	require.True(t, gate.TryRun(func() {
		runs.Add(1)
	}))
	require.Equal(t, int64(2), runs.Load())
}

func TestRunGateWaitBlocksUntilRunReturns(t *testing.T) {
	gate := &runGate{}
	release := make(chan struct{})
	var finished atomic.Bool

	gate.Go(func() {
		<-release
		finished.Store(true)
	})

	waited := make(chan struct{})
	go func() {
		gate.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a run was in progress")
	default:
	}
	close(release)
	<-waited
	require.True(t, finished.Load())
}

func TestRunGateGoRunsWhenIdle(t *testing.T) {
	gate := &runGate{}
	var runs atomic.Int64

	gate.Go(func() {
		runs.Add(1)
	})
	gate.Wait()
	require.Equal(t, int64(1), runs.Load())
}
