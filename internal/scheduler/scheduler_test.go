package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

type recordingWarmer struct {
	mu    sync.Mutex
	calls []string
}

func (w *recordingWarmer) FetchOrCompute(_ context.Context, symbol string, horizon int) (*models.Prediction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, symbol)
	if symbol == "BAD" {
		return nil, errors.New("no data")
	}
	return &models.Prediction{Symbol: symbol, Horizon: horizon}, nil
}

func TestScheduler_RunNowWarmsEveryPair(t *testing.T) {
	w := &recordingWarmer{}
	s := New(w, []string{"AAPL", "BAD"}, []int{7, 30}, applogger.Nop())

	s.RunNow()
	assert.Equal(t, []string{"AAPL", "AAPL", "BAD", "BAD"}, w.calls)
}

func TestScheduler_RegisterRejectsBadSpec(t *testing.T) {
	s := New(&recordingWarmer{}, nil, nil, applogger.Nop())
	assert.Error(t, s.Register("not a cron"))
	require.NoError(t, s.Register("0 0 6 * * 1-5"))
	s.Start()
	s.Stop()
}
