package forecast

import "math"

// adam keeps first and second moment estimates per parameter tensor.
type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	epsilon float64
	t       int
	m       [][]float64
	v       [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{
		lr:      lr,
		beta1:   0.9,
		beta2:   0.999,
		epsilon: 1e-7,
		m:       make([][]float64, len(params)),
		v:       make([][]float64, len(params)),
	}
	for i, p := range params {
		a.m[i] = make([]float64, len(p))
		a.v[i] = make([]float64, len(p))
	}
	return a
}

// step applies one update; params and grads share order and shapes.
func (a *adam) step(params, grads [][]float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, p := range params {
		g, m, v := grads[i], a.m[i], a.v[i]
		for k := range p {
			m[k] = a.beta1*m[k] + (1-a.beta1)*g[k]
			v[k] = a.beta2*v[k] + (1-a.beta2)*g[k]*g[k]
			mHat := m[k] / c1
			vHat := v[k] / c2
			p[k] -= a.lr * mHat / (math.Sqrt(vHat) + a.epsilon)
		}
	}
}
