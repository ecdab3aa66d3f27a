package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/timeouts"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})
	if got := timeouts.Short(); got != 7*time.Second {
		t.Errorf("Short = %v, want 7s", got)
	}
	if got := timeouts.Medium(); got != timeouts.DefaultMedium {
		t.Errorf("Medium = %v, want default", got)
	}

	timeouts.Reset()
	if got := timeouts.Short(); got != timeouts.DefaultShort {
		t.Errorf("Short after Reset = %v", got)
	}
}

func TestWithTimeout_LogsDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, log, "slow op")
	<-ctx.Done()
	cancel()

	if logs.FilterMessage("operation timed out").Len() != 1 {
		t.Errorf("expected one timeout warning, got %d entries", logs.Len())
	}
}

func TestWithTimeout_NoLogWhenCanceledEarly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	_, cancel := timeouts.WithTimeout(context.Background(), time.Minute, log, "fast op")
	cancel()

	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %d", logs.Len())
	}
}
