package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRunnerExecutesTasks(t *testing.T) {
	r := NewRunner(zap.NewNop())

	var runs atomic.Int32
	r.Add(Task{
		Name:     "sweep",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	r.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	r.Stop()

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestRunnerStopWithoutStart(t *testing.T) {
	r := NewRunner(nil)
	r.Stop() // must not panic
}
