package vddksession

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// ShutdownRequest reports that a termination signal arrived and which
// signal it was, so callers can map it to the process's exit code the way
// the original tool did (exit_code = signal number) without doing any work
// inside the signal handler itself.
type ShutdownRequest struct {
	Signal os.Signal
}

// WatchSignals arranges for SIGHUP, SIGINT and SIGTERM to cancel ctx
// cooperatively instead of calling exit() from the handler. Long-running
// loops (the copy pipeline, the CBT walk) check ctx.Err() between chunks
// and unwind normally, so in-flight writes are never torn out from under
// an active syscall.
//
// The returned function stops watching and must be called once the run
// completes normally so the signal channel doesn't leak.
func WatchSignals(ctx context.Context) (context.Context, func(), *int32) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	var receivedSignal int32
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			num := signalNumber(sig)
			atomic.StoreInt32(&receivedSignal, int32(num))
			log.WithField("signal", sig).Warn("received termination signal, shutting down")
			cancel()
		case <-done:
		}
	}()

	stop := func() {
		close(done)
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop, &receivedSignal
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 1
}
