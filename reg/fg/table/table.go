// Package table implements the TABLE function family: a piecewise-linear
// interpolation over a (time, value) array, plus a Direct variant that
// re-arms an inline ramp whenever the caller pushes a new target value,
// so a live setpoint stream still produces a rate- and
// acceleration-limited output instead of jumping.
//
// original_source/libfg only retained table.h, not table.c. The
// piecewise-linear evaluation here follows directly from the header's
// field layout (fg_table_config/fg_table_pars in
// original_source/libfg/inc/libfg/table.h: a segment index, the
// previous segment's cached gradient, and the raw ref/time arrays), so
// it is grounded on that shape even though the stepping logic itself is
// a from-specification design. Direct has no header of its own in the
// retrievable source; it is built from the family description in the
// distilled specification, composed on top of this package's Table and
// the ramp family.
package table

import (
	"github.com/krystian-wojtas/ccreg/reg/fg"
	"github.com/krystian-wojtas/ccreg/reg/fg/ramp"
)

// Config is a table of (time, value) points, strictly increasing in
// time.
type Config struct {
	Time []float64
	Ref  []float64
}

// Pars is the fully resolved, ready-to-generate table function.
type Pars struct {
	Delay      float64
	Time       []float64
	Ref        []float64
	segIdx     int
	prevSegIdx int
	segGrad    float64
}

// Init validates a table against limits (every point, each with the
// gradient of the segment ending at it as its rate) and fills pars ready
// for Gen.
func Init(limits *fg.Limits, polarity fg.Polarity, config *Config, delay float64, pars *Pars, meta *fg.Meta) fg.Error {
	if len(config.Time) < 2 || len(config.Time) != len(config.Ref) {
		return fg.ErrBadArrayLen
	}
	for i := 1; i < len(config.Time); i++ {
		if config.Time[i] <= config.Time[i-1] {
			return fg.ErrInvalidTime
		}
	}

	pars.Delay = delay
	pars.Time = append([]float64(nil), config.Time...)
	pars.Ref = append([]float64(nil), config.Ref...)
	pars.segIdx = 0
	pars.prevSegIdx = -1

	var m fg.Meta
	fg.ResetMeta(&m, config.Ref[0])
	for i, r := range config.Ref {
		fg.SetMinMax(&m, r)
		rate := 0.0
		if i > 0 {
			rate = (config.Ref[i] - config.Ref[i-1]) / (config.Time[i] - config.Time[i-1])
		}
		if e := fg.CheckRef(limits, polarity, r, rate, 0.0, &m); e != fg.ErrNone {
			if meta != nil {
				*meta = m
			}
			return e
		}
	}
	m.Duration = config.Time[len(config.Time)-1]
	m.Range.End = config.Ref[len(config.Ref)-1]

	if meta != nil {
		*meta = m
	}
	return fg.ErrNone
}

// Gen evaluates the table at time by linear interpolation between the
// bracketing points, caching the segment index between calls the way
// the original header's seg_idx/prev_seg_idx pair suggests.
func Gen(pars *Pars, time float64) (fg.Status, float64) {
	n := len(pars.Time)
	t := time - pars.Delay

	if t < pars.Time[0] {
		return fg.BeforeFunc, pars.Ref[0]
	}
	if t >= pars.Time[n-1] {
		return fg.AfterFunc, pars.Ref[n-1]
	}

	idx := pars.segIdx
	if idx >= n-1 || t < pars.Time[idx] {
		idx = 0
	}
	for idx < n-2 && t >= pars.Time[idx+1] {
		idx++
	}
	pars.segIdx = idx

	if idx != pars.prevSegIdx {
		pars.segGrad = (pars.Ref[idx+1] - pars.Ref[idx]) / (pars.Time[idx+1] - pars.Time[idx])
		pars.prevSegIdx = idx
	}

	ref := pars.Ref[idx] + pars.segGrad*(t-pars.Time[idx])
	return fg.DuringFunc, ref
}

// Direct re-arms an inline ramp whenever SetTarget is called with a new
// value, so a stream of live setpoints always produces a rate- and
// acceleration-limited output rather than a step.
type Direct struct {
	cfg  ramp.Config
	pars ramp.Pars
	have bool
}

// NewDirect builds a Direct generator with the given rate/acceleration
// limit (expressed as the ramp's acceleration).
func NewDirect(acceleration float64) *Direct {
	return &Direct{cfg: ramp.Config{Acceleration: acceleration}}
}

// SetTarget arms a new ramp from the current output (read via Gen at
// time) toward target, if target differs from the one already armed.
func (d *Direct) SetTarget(time, currentRef, target float64) {
	if d.have && d.cfg.Final == target {
		return
	}
	d.cfg.Final = target
	ramp.Calc(&d.cfg, &d.pars, time, currentRef, nil)
	d.have = true
}

// Gen evaluates the currently armed ramp at time.
func (d *Direct) Gen(time float64) (fg.Status, float64) {
	if !d.have {
		return fg.BeforeFunc, 0
	}
	return ramp.Gen(&d.pars, time)
}
