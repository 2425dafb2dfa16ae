package forecast

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// lstmLayer is a single LSTM layer. Gate rows are ordered input, forget, cell, output.
type lstmLayer struct {
	in     int
	hidden int
	w      []float64 // (4*hidden) x (in+hidden), row-major
	b      []float64 // 4*hidden

	// views over w and b; the optimizer updates the slices in place
	wm *mat.Dense
	bv *mat.VecDense
}

type lstmGrad struct {
	w []float64
	b []float64
}

// lstmStep keeps the activations of one timestep for backpropagation.
type lstmStep struct {
	z     []float64 // [x_t; h_{t-1}]
	i     []float64
	f     []float64
	g     []float64
	o     []float64
	cPrev []float64
	c     []float64
	h     []float64
}

func newLSTMLayer(in, hidden int, rng *rand.Rand) *lstmLayer {
	cols := in + hidden
	l := &lstmLayer{
		in:     in,
		hidden: hidden,
		w:      make([]float64, 4*hidden*cols),
		b:      make([]float64, 4*hidden),
	}
	// Glorot uniform over the stacked gate matrix.
	limit := math.Sqrt(6.0 / float64(cols+4*hidden))
	for k := range l.w {
		l.w[k] = (rng.Float64()*2 - 1) * limit
	}
	// forget gate starts open
	for j := hidden; j < 2*hidden; j++ {
		l.b[j] = 1
	}
	l.wm = mat.NewDense(4*hidden, cols, l.w)
	l.bv = mat.NewVecDense(4*hidden, l.b)
	return l
}

func (l *lstmLayer) newGrad() lstmGrad {
	return lstmGrad{w: make([]float64, len(l.w)), b: make([]float64, len(l.b))}
}

func (l *lstmLayer) forward(xs [][]float64) []lstmStep {
	H := l.hidden
	cols := l.in + H
	stride := cols + 6*H
	steps := make([]lstmStep, len(xs))
	buf := make([]float64, len(xs)*stride)
	hPrev := make([]float64, H)
	cPrev := make([]float64, H)
	a := mat.NewVecDense(4*H, nil)
	act := a.RawVector().Data

	for t, x := range xs {
		seg := buf[t*stride : (t+1)*stride]
		z := seg[:cols]
		copy(z, x)
		copy(z[l.in:], hPrev)

		a.MulVec(l.wm, mat.NewVecDense(cols, z))
		a.AddVec(a, l.bv)

		gates := seg[cols:]
		st := lstmStep{
			z:     z,
			i:     gates[0:H],
			f:     gates[H : 2*H],
			g:     gates[2*H : 3*H],
			o:     gates[3*H : 4*H],
			cPrev: cPrev,
			c:     gates[4*H : 5*H],
			h:     gates[5*H : 6*H],
		}
		for j := 0; j < H; j++ {
			st.i[j] = sigmoid(act[j])
			st.f[j] = sigmoid(act[H+j])
			st.g[j] = math.Tanh(act[2*H+j])
			st.o[j] = sigmoid(act[3*H+j])
			st.c[j] = st.f[j]*cPrev[j] + st.i[j]*st.g[j]
			st.h[j] = st.o[j] * math.Tanh(st.c[j])
		}
		steps[t] = st
		hPrev, cPrev = st.h, st.c
	}
	return steps
}

// backward runs BPTT given dL/dh_t per step (nil means zero) and returns dL/dx_t.
func (l *lstmLayer) backward(steps []lstmStep, dhs [][]float64, g *lstmGrad) [][]float64 {
	H := l.hidden
	cols := l.in + H
	dxs := make([][]float64, len(steps))
	dzBuf := make([]float64, len(steps)*cols)
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	da := make([]float64, 4*H)
	daV := mat.NewVecDense(4*H, da)
	gw := mat.NewDense(4*H, cols, g.w)
	wT := l.wm.T()

	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		for j := 0; j < H; j++ {
			dh := dhNext[j]
			if dhs[t] != nil {
				dh += dhs[t][j]
			}
			tc := math.Tanh(st.c[j])
			do := dh * tc
			dc := dh*st.o[j]*(1-tc*tc) + dcNext[j]
			di := dc * st.g[j]
			dg := dc * st.i[j]
			df := dc * st.cPrev[j]
			dcNext[j] = dc * st.f[j]

			da[j] = di * st.i[j] * (1 - st.i[j])
			da[H+j] = df * st.f[j] * (1 - st.f[j])
			da[2*H+j] = dg * (1 - st.g[j]*st.g[j])
			da[3*H+j] = do * st.o[j] * (1 - st.o[j])
		}

		for r, d := range da {
			g.b[r] += d
		}
		gw.RankOne(gw, 1, daV, mat.NewVecDense(cols, st.z))

		dz := dzBuf[t*cols : (t+1)*cols]
		mat.NewVecDense(cols, dz).MulVec(wT, daV)
		dxs[t] = dz[:l.in]
		dhNext = dz[l.in:]
	}
	return dxs
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
