package loop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPostRunsOnNextRun(t *testing.T) {
	l := NewReference()
	var ran bool
	l.Post(func() { ran = true; l.Stop() })

	err := l.Run(context.Background())

	assert.NoError(t, err)
	assert.True(t, ran)
}

func TestPostDuringRunIsPickedUpWithoutExtraWakeup(t *testing.T) {
	l := NewReference()
	var order []string
	l.Post(func() {
		order = append(order, "first")
		l.Post(func() {
			order = append(order, "second")
			l.Stop()
		})
	})

	err := l.Run(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestArmTimerFiresAfterDuration(t *testing.T) {
	l := NewReference()
	fired := make(chan struct{})
	l.ArmTimer(10*time.Millisecond, func() {
		close(fired)
		l.Stop()
	})

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	<-done
}

func TestArmTimerStopPreventsFiring(t *testing.T) {
	l := NewReference()
	handle := l.ArmTimer(10*time.Millisecond, func() {
		t.Error("timer fired after Stop")
	})
	assert.True(t, handle.Stop())

	time.Sleep(30 * time.Millisecond)
}

func TestRunReturnsOnContextCancellation(t *testing.T) {
	l := NewReference()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
