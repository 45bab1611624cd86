// Package delay implements the fractional-sample delay buffer used by the
// simulator and by the regulation loop's delayed-reference readback.
package delay

import "math"

// Line is a rolling buffer of floats with a fixed fractional interpolation
// weight so that the effective delay equals exactly delayIters samples,
// even when delayIters is not a whole number of ticks.
//
// Grounded on the delay/measurement plumbing in original_source/libreg's
// conv.c (regDelayCalc, regDelaySignalRT): callers push one sample per
// tick and read back an interpolated value delayIters ticks in the past.
type Line struct {
	buf    []float64
	length int
	index  int
	whole  int     // whole number of ticks of delay
	weight float64 // interpolation weight toward the older of the two bracketing samples
}

// New builds a delay line sized for delayIters (may be fractional and zero).
func New(delayIters float64) *Line {
	if delayIters < 0 {
		delayIters = 0
	}

	whole := int(math.Floor(delayIters))
	length := whole + 2 // room for samples at back=whole and back=whole+1

	return &Line{
		buf:    make([]float64, length),
		length: length,
		whole:  whole,
		weight: delayIters - float64(whole),
	}
}

// Reset fills the buffer with value, as if it had been constant forever.
func (l *Line) Reset(value float64) {
	for i := range l.buf {
		l.buf[i] = value
	}

	l.index = 0
}

// PushAndRead inserts the new sample and returns the interpolated value
// delayIters samples in the past. It also returns the raw (undelayed,
// "load") value as a convenience for callers that want both, matching
// regDelayCalc's (load, meas) pair of outputs.
func (l *Line) PushAndRead(sample float64) (load, delayed float64) {
	l.buf[l.index] = sample

	// The fractional delay point falls between the sample `whole` ticks
	// back and the one `whole+1` ticks back.
	newer := l.at(l.whole)
	older := l.at(l.whole + 1)

	delayed = newer + l.weight*(older-newer)

	l.index++
	if l.index >= l.length {
		l.index = 0
	}

	return sample, delayed
}

// at returns the sample written back ticks ago, including the one just
// written (back == 0).
func (l *Line) at(back int) float64 {
	idx := l.index - back
	for idx < 0 {
		idx += l.length
	}

	return l.buf[idx]
}

// Bypass returns input unchanged, for channels whose voltage-source
// response is faster than the tick period and so need no delay modeling.
func Bypass(input float64) float64 {
	return input
}
