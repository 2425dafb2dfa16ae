package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
)

var ErrShape = errors.New("shape mismatch")

// ModelConfig sizes the network and optimizer.
type ModelConfig struct {
	Hidden1      int
	Hidden2      int
	LearningRate float64
	Seed         int64
}

// Model is a two-layer stacked LSTM regressor with one linear output unit.
// A Model is owned by a single request and is not safe for concurrent Train calls.
type Model struct {
	lookBack int
	l1       *lstmLayer
	l2       *lstmLayer
	wOut     []float64
	bOut     []float64
	opt      *adam
	rng      *rand.Rand
}

type gradients struct {
	l1   lstmGrad
	l2   lstmGrad
	wOut []float64
	bOut []float64
}

func (g *gradients) slices() [][]float64 {
	return [][]float64{g.l1.w, g.l1.b, g.l2.w, g.l2.b, g.wOut, g.bOut}
}

func (g *gradients) zero() {
	for _, s := range g.slices() {
		for k := range s {
			s[k] = 0
		}
	}
}

// Build creates an untrained model for windows of lookBack values.
func Build(lookBack int, cfg ModelConfig) (*Model, error) {
	if lookBack < 1 || cfg.Hidden1 < 1 || cfg.Hidden2 < 1 {
		return nil, fmt.Errorf("%w: look back %d, hidden %d/%d", ErrShape, lookBack, cfg.Hidden1, cfg.Hidden2)
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.001
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &Model{
		lookBack: lookBack,
		l1:       newLSTMLayer(1, cfg.Hidden1, rng),
		l2:       newLSTMLayer(cfg.Hidden1, cfg.Hidden2, rng),
		wOut:     make([]float64, cfg.Hidden2),
		bOut:     make([]float64, 1),
		rng:      rng,
	}
	limit := math.Sqrt(6.0 / float64(cfg.Hidden2+1))
	for k := range m.wOut {
		m.wOut[k] = (rng.Float64()*2 - 1) * limit
	}
	m.opt = newAdam(cfg.LearningRate, m.params())
	return m, nil
}

func (m *Model) params() [][]float64 {
	return [][]float64{m.l1.w, m.l1.b, m.l2.w, m.l2.b, m.wOut, m.bOut}
}

func (m *Model) newGradients() *gradients {
	return &gradients{
		l1:   m.l1.newGrad(),
		l2:   m.l2.newGrad(),
		wOut: make([]float64, len(m.wOut)),
		bOut: make([]float64, 1),
	}
}

type pass struct {
	s1 []lstmStep
	s2 []lstmStep
	y  float64
}

func (m *Model) forward(window []float64) pass {
	vals := append([]float64(nil), window...)
	xs := make([][]float64, len(vals))
	for t := range vals {
		xs[t] = vals[t : t+1]
	}
	s1 := m.l1.forward(xs)
	h1 := make([][]float64, len(s1))
	for t := range s1 {
		h1[t] = s1[t].h
	}
	s2 := m.l2.forward(h1)
	h := s2[len(s2)-1].h

	y := m.bOut[0]
	for k, hk := range h {
		y += m.wOut[k] * hk
	}
	return pass{s1: s1, s2: s2, y: y}
}

// accumulate adds the gradient of scale*(y-target)^2 into g and returns the squared error.
func (m *Model) accumulate(window []float64, target, scale float64, g *gradients) float64 {
	p := m.forward(window)
	diff := p.y - target
	dy := 2 * diff * scale

	T := len(p.s2)
	h := p.s2[T-1].h
	dh := make([]float64, len(h))
	for k, hk := range h {
		g.wOut[k] += dy * hk
		dh[k] = dy * m.wOut[k]
	}
	g.bOut[0] += dy

	dh2 := make([][]float64, T)
	dh2[T-1] = dh
	dh1 := m.l2.backward(p.s2, dh2, &g.l2)
	m.l1.backward(p.s1, dh1, &g.l1)
	return diff * diff
}

// Train fits the model with mini-batch Adam on MSE and returns the mean loss per epoch.
// Samples are shuffled every epoch; ctx is checked between batches.
func (m *Model) Train(ctx context.Context, inputs [][]float64, targets []float64, epochs, batchSize int) ([]float64, error) {
	if len(inputs) == 0 || len(inputs) != len(targets) {
		return nil, fmt.Errorf("%w: %d inputs for %d targets", ErrShape, len(inputs), len(targets))
	}
	for i, in := range inputs {
		if len(in) != m.lookBack {
			return nil, fmt.Errorf("%w: window %d has %d values, want %d", ErrShape, i, len(in), m.lookBack)
		}
	}
	if epochs < 1 || batchSize < 1 {
		return nil, fmt.Errorf("epochs and batch size must be positive, got %d/%d", epochs, batchSize)
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > batchSize {
		workers = batchSize
	}
	shards := make([]*gradients, workers)
	for w := range shards {
		shards[w] = m.newGradients()
	}
	sums := make([]float64, workers)
	total := shards[0].slices()

	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}

	history := make([]float64, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		m.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var epochLoss float64
		for start := 0; start < len(order); start += batchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[start:end]
			scale := 1 / float64(len(batch))

			n := workers
			if n > len(batch) {
				n = len(batch)
			}
			var wg sync.WaitGroup
			for w := 0; w < n; w++ {
				shards[w].zero()
				sums[w] = 0
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for k := w; k < len(batch); k += n {
						idx := batch[k]
						sums[w] += m.accumulate(inputs[idx], targets[idx], scale, shards[w])
					}
				}(w)
			}
			wg.Wait()

			for w := 1; w < n; w++ {
				for s, part := range shards[w].slices() {
					dst := total[s]
					for k, v := range part {
						dst[k] += v
					}
				}
			}
			for w := 0; w < n; w++ {
				epochLoss += sums[w]
			}
			m.opt.step(m.params(), total)
		}

		epochLoss /= float64(len(order))
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return history, fmt.Errorf("training diverged at epoch %d: %w", epoch+1, ErrNonFinite)
		}
		history = append(history, epochLoss)
	}
	return history, nil
}

// Predict returns the normalized one-step prediction for a window.
func (m *Model) Predict(window []float64) (float64, error) {
	if len(window) != m.lookBack {
		return 0, fmt.Errorf("%w: window has %d values, want %d", ErrShape, len(window), m.lookBack)
	}
	y := m.forward(window).y
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, ErrNonFinite
	}
	return y, nil
}

// PredictHorizon forecasts horizon values autoregressively. Each normalized
// prediction is appended to the window for the next step; only the returned
// values are inverse-scaled.
func (m *Model) PredictHorizon(lastWindow []float64, scaler Scaler, horizon int) ([]float64, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	current := make([]float64, len(lastWindow))
	copy(current, lastWindow)

	out := make([]float64, 0, horizon)
	for step := 0; step < horizon; step++ {
		y, err := m.Predict(current)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step+1, err)
		}
		out = append(out, scaler.Unscale(y))

		next := make([]float64, len(current))
		copy(next, current[1:])
		next[len(next)-1] = y
		current = next
	}
	return out, nil
}
