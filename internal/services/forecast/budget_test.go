package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"FinCast/pkg/config"
	"FinCast/pkg/util"
)

const tradingDaysPerYear = 252

func sineSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/15) + float64(i)*0.05
	}
	return out
}

// defaultWindows estimates how many training windows the default history yields today.
func defaultWindows(t *testing.T, cfg *config.Config) int {
	t.Helper()
	from, to, err := util.HistoryRange(cfg.Forecast.HistoryStart, cfg.Forecast.HistoryEnd, time.Now())
	require.NoError(t, err)
	days := to.Sub(from).Hours() / 24
	return int(days/365*tradingDaysPerYear) - cfg.Forecast.LookBack
}

func defaultModel(t testing.TB, cfg *config.Config) *Model {
	f := cfg.Forecast
	m, err := Build(f.LookBack, ModelConfig{
		Hidden1:      f.HiddenUnits[0],
		Hidden2:      f.HiddenUnits[1],
		LearningRate: f.LearningRate,
		Seed:         f.Seed,
	})
	require.NoError(t, err)
	return m
}

func TestDefaultTrainingFitsTimeout(t *testing.T) {
	if testing.Short() || raceEnabled {
		t.Skip("timing check")
	}
	cfg := config.Default()
	f := cfg.Forecast

	const sample = 128
	w, err := Prepare(sineSeries(sample+f.LookBack), f.LookBack)
	require.NoError(t, err)
	m := defaultModel(t, cfg)

	start := time.Now()
	_, err = m.Train(context.Background(), w.Inputs, w.Targets, 1, f.BatchSize)
	require.NoError(t, err)
	perWindow := time.Since(start) / sample

	windows := defaultWindows(t, cfg)
	projected := perWindow * time.Duration(windows*f.Epochs)
	t.Logf("%d windows x %d epochs: projected %s, timeout %s", windows, f.Epochs, projected, f.TrainTimeout)
	require.Less(t, projected, f.TrainTimeout,
		"default forecast config cannot finish training before train_timeout")
}

func BenchmarkTrainEpochDefaults(b *testing.B) {
	cfg := config.Default()
	f := cfg.Forecast
	w, err := Prepare(sineSeries(512+f.LookBack), f.LookBack)
	require.NoError(b, err)
	m := defaultModel(b, cfg)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Train(context.Background(), w.Inputs, w.Targets, 1, f.BatchSize); err != nil {
			b.Fatal(err)
		}
	}
}
