package zap_test

import (
	"testing"

	gzap "github.com/relaycore/pgdb/logger/zap"
)

func TestNop_DoesNotPanic(t *testing.T) {
	l := gzap.NewNop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	l.Debugw("x", "k", "v")
	l.Infow("x", "k", "v")
	l.Warnw("x", "k", "v")
	l.Errorw("x", "k", "v")
}

func TestNamed_ReturnsUsableLogger(t *testing.T) {
	l := gzap.NewNop().Named("sub")
	l.Infow("x", "k", "v")
}

func TestNew_EmptyLevelReturnsUsableLogger(t *testing.T) {
	l := gzap.New("")
	l.Infow("started", "component", "test")
}
