package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "FinCast/pkg/logger"
)

func TestForecastRequestHandler(t *testing.T) {
	f := &stubForecaster{}
	svc, store := newService(t, tenToTwenty(), f, nil)
	h := NewForecastRequestHandler("fincast.forecast-requests", svc, applogger.Nop())
	assert.Equal(t, "fincast.forecast-requests", h.Topic())
	assert.Equal(t, ForecastJobType, h.Type())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"aapl","horizon":4}`)))
	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL","horizon":4}`)))
	assert.Equal(t, 1, store.len())
	assert.EqualValues(t, 1, f.calls.Load())

	assert.Error(t, h.Handle(context.Background(), []byte(`{bad json`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"symbol":"","horizon":4}`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL","horizon":0}`)))
}
