package rst

import "sync/atomic"

// Engine owns one regulated channel's history rings and the atomic
// active/next parameter baton. New Params are prepared off the real
// time path by PublishNext; the tick loop picks them up at the next
// call to SwapIfPending. The swap is written only by the non-real-time
// side and cleared only by the tick loop, needing nothing beyond an
// atomic load/store on a single pointer and a single flag.
type Engine struct {
	active atomic.Pointer[Params]
	next   atomic.Pointer[Params]
	useNext atomic.Bool

	mask  int
	index int

	ref, meas, act []float64

	trackDelayEstimate float64
	period             float64
}

// NewEngine builds an engine with history rings sized to the next
// power of two at or above minLen (at minimum MaxCoeffs plus a small
// extrapolation margin), running an initial design.
func NewEngine(initial *Params, period float64, minLen int) *Engine {
	if minLen < MaxCoeffs+4 {
		minLen = MaxCoeffs + 4
	}

	size := 1
	for size < minLen {
		size *= 2
	}

	e := &Engine{
		mask:   size - 1,
		ref:    make([]float64, size),
		meas:   make([]float64, size),
		act:    make([]float64, size),
		period: period,
	}

	e.active.Store(initial)
	e.next.Store(initial)

	return e
}

// Active returns the parameter set currently driving the tick loop.
func (e *Engine) Active() *Params { return e.active.Load() }

// PublishNext stages a new design to take effect on the next tick. Safe
// to call from outside the real-time path; never blocks the tick loop.
func (e *Engine) PublishNext(p *Params) {
	e.next.Store(p)
	e.useNext.Store(true)
}

// SwapIfPending must be called once at the start of every regulation
// tick before CalcAct. It is the only place the active pointer moves
// and the only place the pending flag is cleared.
func (e *Engine) SwapIfPending() (swapped bool) {
	if e.useNext.Load() {
		e.active.Store(e.next.Load())
		e.useNext.Store(false)
		return true
	}
	return false
}

// SeedHistory fills every history slot with a constant operating point,
// used when a channel enters regulation (mode change) so the first
// several ticks don't see a transient from an all-zero history. act is
// stored as given.
func (e *Engine) SeedHistory(ref, meas, act float64) {
	for i := range e.ref {
		e.ref[i] = ref
		e.meas[i] = meas
		e.act[i] = act
	}
}

// AverageAct returns the mean actuation over the history ring, used to
// seed a voltage reference when a channel drops out of closed-loop
// regulation back to open-loop voltage control.
func (e *Engine) AverageAct() float64 {
	sum := 0.0
	for _, v := range e.act {
		sum += v
	}
	return sum / float64(len(e.act))
}

func (e *Engine) advance() {
	e.index = (e.index + 1) & e.mask
}

func (e *Engine) at(buf []float64, back int) float64 {
	idx := (e.index - back) & e.mask
	return buf[idx]
}

// CalcAct runs the forward regulation pass: advances the history index,
// records ref/meas, and solves
//
//	act[k] = ( Σ_{i>=1} (T[i]·ref[k-i] - R[i]·meas[k-i] - S[i]·act[k-i])
//	           + T[0]·ref[k] - R[0]·meas[k] ) / S[0]
func (e *Engine) CalcAct(ref, meas float64) float64 {
	p := e.active.Load()

	e.advance()
	e.ref[e.index] = ref
	e.meas[e.index] = meas

	sum := p.T[0]*ref - p.R[0]*meas

	n := len(p.T)
	if len(p.R) > n {
		n = len(p.R)
	}
	if len(p.S) > n {
		n = len(p.S)
	}

	for i := 1; i < n; i++ {
		if i < len(p.T) {
			sum += p.T[i] * e.at(e.ref, i)
		}
		if i < len(p.R) {
			sum -= p.R[i] * e.at(e.meas, i)
		}
		if i < len(p.S) {
			sum -= p.S[i] * e.at(e.act, i)
		}
	}

	act := sum / p.S[0]
	e.act[e.index] = act

	return act
}

// RecordOpenLoop advances the history index and stores ref/meas without
// solving for act, for CURRENT_REF actuation where the commanded
// reference *is* the actuation and there is no RST polynomial to run.
// The act slot is set equal to ref so DelayedRef/AverageAct still see a
// self-consistent history.
func (e *Engine) RecordOpenLoop(ref, meas float64) {
	e.advance()
	e.ref[e.index] = ref
	e.meas[e.index] = meas
	e.act[e.index] = ref
}

// BackCalcRef implements the back-calculation branch: given that a
// downstream clipper limited this tick's actuation to actClipped, it
// recomputes ref[k] from the same
// RST equation solved for ref instead of act, then overwrites this
// tick's ref and act history slots so later ticks see a self-consistent
// past. Because it is the algebraic inverse of CalcAct, plugging the
// returned ref back into CalcAct with unchanged histories reproduces
// actClipped exactly.
func (e *Engine) BackCalcRef(actClipped float64) float64 {
	p := e.active.Load()

	meas := e.meas[e.index]
	sum := p.S[0]*actClipped + p.R[0]*meas

	n := len(p.T)
	if len(p.R) > n {
		n = len(p.R)
	}
	if len(p.S) > n {
		n = len(p.S)
	}

	for i := 1; i < n; i++ {
		if i < len(p.S) {
			sum += p.S[i] * e.at(e.act, i)
		}
		if i < len(p.R) {
			sum += p.R[i] * e.at(e.meas, i)
		}
		if i < len(p.T) {
			sum -= p.T[i] * e.at(e.ref, i)
		}
	}

	ref := sum / p.T[0]

	e.ref[e.index] = ref
	e.act[e.index] = actClipped

	return ref
}

// DelayedRef implements delayed_ref(k, offset_iters): it reads back
// into the reference ring at history_index - pure_delay_periods -
// offset_iters, linearly interpolating between the two bracketing
// integer positions.
func (e *Engine) DelayedRef(offsetIters float64) float64 {
	p := e.active.Load()
	return e.interpolate(e.ref, p.PureDelayPeriods+offsetIters)
}

func (e *Engine) interpolate(buf []float64, back float64) float64 {
	if back < 0 {
		back = 0
	}

	whole := int(back)
	frac := back - float64(whole)

	newer := e.at(buf, whole)
	older := e.at(buf, whole+1)

	return newer + frac*(older-newer)
}

// UpdateTrackDelay maintains a running estimate of the effective
// control track delay by low-pass filtering how often the commanded
// reference is being clipped: a channel that is clipped often is
// effectively lagging its commanded trajectory by close to one period
// per clipped tick.
func (e *Engine) UpdateTrackDelay(wasClipped bool, filterFactor float64) {
	target := 0.0
	if wasClipped {
		target = e.period
	}

	e.trackDelayEstimate += (target - e.trackDelayEstimate) * filterFactor
}

// TrackDelayPeriods returns the current track-delay estimate, in
// periods.
func (e *Engine) TrackDelayPeriods() float64 {
	if e.period <= 0.0 {
		return 0.0
	}
	return e.trackDelayEstimate / e.period
}
