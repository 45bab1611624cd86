// Package meas implements the two-stage box-car FIR measurement filter,
// extrapolation, and rate estimation used to condition a raw ADC sample
// stream before it reaches the regulator.
//
// Grounded on original_source/libreg/src/meas.c: regMeasFilterInitBuffer,
// regMeasFilterInit, regMeasFirFilterRT, regMeasFilterRT, regMeasRateRT,
// and regMeasNoiseAndToneRT for the noise/tone generator reused by the
// simulator package. Field names and the fixed-point scaling scheme are
// carried over directly; the int32 accumulators (rather than float64)
// are preserved because repeated addition of many small float samples
// drifts over long runs, which the fixed-point box-car avoids.
package meas

import "math"

// rateBufLen and its mask mirror REG_MEAS_RATE_BUF_MASK: four samples
// are enough for a 4-point least-squares rate estimate.
const (
	rateBufLen  = 4
	rateBufMask = rateBufLen - 1
)

// Filter is a two-stage cascaded box-car FIR with a fixed-point integer
// accumulator, an extrapolation stage for the sample most recently
// produced, and a 4-point least-squares rate estimator.
type Filter struct {
	enabled bool

	fir1Len, fir2Len int
	totalFirLen      int // fir1Len + fir2Len, used as the extrapolation divisor

	// Exactly one stage normalizes (divides by its own length) each
	// tick; the other is left as a raw moving sum. Only the normalizing
	// stage can safely be the longer of the two without intermediate
	// sums exceeding int32 range, so normalize1 always selects
	// whichever of fir1Len/fir2Len is not smaller.
	normalize1 bool
	shorterLen int

	floatToInteger float64
	integerToFloat float64

	fir1Buf  []int32
	fir1Sum  int64
	fir1Idx  int

	fir2Buf  []int32
	fir2Sum  int64
	fir2Idx  int

	fir1Stop int32 // value held in fir1 accumulator's output register between stages
	extrapolationFactor float64

	filteredInt int32
	prevFilteredInt int32

	// Output stage.
	Unfiltered float64
	Filtered   float64
	Extrapolated float64

	// Rate estimator ring buffer and period.
	rateBuf   [rateBufLen]float64
	rateIdx   int
	period    float64
}

// NewFilter sizes the filter for the given FIR lengths (in iterations)
// and the measurement's expected maximum magnitude. period is the
// iteration period in seconds, used by the rate estimator.
//
// maxAbsMeas should be the largest magnitude the measurement can take;
// it is expanded by 10% headroom before computing the fixed-point scale
// factor, matching regMeasFilterInit's max_meas_value.
func NewFilter(fir1Len, fir2Len int, maxAbsMeas, period float64) *Filter {
	if fir1Len < 1 {
		fir1Len = 1
	}
	if fir2Len < 1 {
		fir2Len = 1
	}

	f := &Filter{
		enabled:  true,
		fir1Len:  fir1Len,
		fir2Len:  fir2Len,
		fir1Buf:  make([]int32, fir1Len),
		fir2Buf:  make([]int32, fir2Len),
		period:   period,
	}

	f.totalFirLen = fir1Len + fir2Len

	maxMeasValue := 1.1 * math.Abs(maxAbsMeas)
	if maxMeasValue <= 0.0 {
		maxMeasValue = 1.0
	}

	longestFirLen := fir1Len
	if fir2Len > longestFirLen {
		longestFirLen = fir2Len
	}

	f.normalize1 = fir1Len >= fir2Len
	f.shorterLen = fir2Len
	if !f.normalize1 {
		f.shorterLen = fir1Len
	}

	f.floatToInteger = float64(math.MaxInt32) / (float64(longestFirLen) * maxMeasValue)
	f.integerToFloat = 1.0 / (f.floatToInteger * float64(f.shorterLen))
	f.extrapolationFactor = 1.0 // overwritten by SetExtrapolation if used

	return f
}

// SetEnabled toggles filtering; when disabled, Run passes the raw sample
// straight through to Filtered and Extrapolated (regMeasFilterRT's
// reg_enabled == 0 branch).
func (f *Filter) SetEnabled(enabled bool) { f.enabled = enabled }

// Reset seeds both FIR stages and the rate buffer with a constant value,
// as if the filter had been running on that value forever.
func (f *Filter) Reset(value float64) {
	scaled := int32(value * f.floatToInteger)

	f.fir1Sum = 0
	for i := range f.fir1Buf {
		f.fir1Buf[i] = scaled
		f.fir1Sum += int64(scaled)
	}
	f.fir1Idx = 0

	var stage1Out int32
	if f.normalize1 {
		stage1Out = int32(f.fir1Sum / int64(f.fir1Len))
	} else {
		stage1Out = int32(f.fir1Sum)
	}
	f.fir1Stop = stage1Out

	f.fir2Sum = 0
	for i := range f.fir2Buf {
		f.fir2Buf[i] = f.fir1Stop
		f.fir2Sum += int64(f.fir1Stop)
	}
	f.fir2Idx = 0

	if !f.normalize1 {
		f.filteredInt = int32(f.fir2Sum / int64(f.fir2Len))
	} else {
		f.filteredInt = int32(f.fir2Sum)
	}
	f.prevFilteredInt = f.filteredInt

	f.Unfiltered = value
	f.Filtered = value
	f.Extrapolated = value

	for i := range f.rateBuf {
		f.rateBuf[i] = value
	}
	f.rateIdx = 0
}

// firStage pushes newSample into buf/sum at *idx using branch-based
// wraparound (no modulus, matching the original's real-time-performance
// idiom) and returns the new running sum.
func firStage(buf []int32, sum *int64, idx *int, newSample int32) int64 {
	*sum -= int64(buf[*idx])
	buf[*idx] = newSample
	*sum += int64(newSample)

	*idx++
	if *idx >= len(buf) {
		*idx = 0
	}

	return *sum
}

// Run feeds one raw sample through both FIR stages, updates the
// extrapolated output, and records the sample for the rate estimator.
// It returns the filtered value (delayed by roughly totalFirLen/2
// iterations) matching regMeasFilterRT's reg->meas.filtered.
func (f *Filter) Run(rawSample float64) float64 {
	f.Unfiltered = rawSample

	if !f.enabled {
		f.Filtered = rawSample
		f.Extrapolated = rawSample
		f.pushRate(rawSample)
		return f.Filtered
	}

	// Clip to the fixed-point range before scaling, matching
	// regMeasFirFilterRT's input clip against max_meas_value.
	limit := float64(math.MaxInt32) / float64(f.fir1Len)
	if !f.normalize1 {
		limit = float64(math.MaxInt32) / float64(f.fir2Len)
	}
	scaledInput := rawSample * f.floatToInteger
	if scaledInput > limit {
		scaledInput = limit
	} else if scaledInput < -limit {
		scaledInput = -limit
	}
	scaled := int32(scaledInput)

	stage1Sum := firStage(f.fir1Buf, &f.fir1Sum, &f.fir1Idx, scaled)
	if f.normalize1 {
		f.fir1Stop = int32(stage1Sum / int64(f.fir1Len))
	} else {
		f.fir1Stop = int32(stage1Sum)
	}

	stage2Sum := firStage(f.fir2Buf, &f.fir2Sum, &f.fir2Idx, f.fir1Stop)

	f.prevFilteredInt = f.filteredInt
	if !f.normalize1 {
		f.filteredInt = int32(stage2Sum / int64(f.fir2Len))
	} else {
		f.filteredInt = int32(stage2Sum)
	}

	f.Filtered = float64(f.filteredInt) * f.integerToFloat

	// Linear extrapolation: the last one-tick change of the filtered value
	// scaled by extrapolationFactor (unity unless SetExtrapolationFactor
	// was called), matching regMeasFilterRT's use of extrapolation_factor.
	delta := float64(f.filteredInt-f.prevFilteredInt) * f.integerToFloat
	f.Extrapolated = f.Filtered + delta*f.extrapolationFactor

	f.pushRate(f.Filtered)

	return f.Filtered
}

// SetExtrapolationFactor overrides the default unity extrapolation gain;
// callers pick this based on how many iterations ahead of the filtered
// output the regulator needs its estimate.
func (f *Filter) SetExtrapolationFactor(factor float64) { f.extrapolationFactor = factor }

func (f *Filter) pushRate(sample float64) {
	f.rateBuf[f.rateIdx&rateBufMask] = sample
	f.rateIdx++
}

// Rate returns a least-squares estimate of d(sample)/dt from the last
// four samples pushed through Run, matching regMeasRateRT's formula:
//
//	rate = (2 / (20*period)) * (3*(s0-s3) + (s1-s2))
//
// where s0 is the newest sample and s3 the oldest of the four.
func (f *Filter) Rate() float64 {
	if f.period <= 0.0 {
		return 0.0
	}

	i := f.rateIdx
	s0 := f.rateBuf[(i-1)&rateBufMask]
	s1 := f.rateBuf[(i-2)&rateBufMask]
	s2 := f.rateBuf[(i-3)&rateBufMask]
	s3 := f.rateBuf[(i-4)&rateBufMask]

	return (2.0 / (20.0 * f.period)) * (3.0*(s0-s3) + (s1 - s2))
}

// NoiseAndTone reproduces the pseudo-random additive noise and fixed
// square-tone generator used by both the simulator and, when test
// injection is enabled, the measurement path itself.
//
// Grounded on regMeasNoiseAndToneRT: a 32-bit linear congruential
// generator seeded with the fixed constant 0x8E35B19C so that repeated simulation runs are
// bit-for-bit reproducible, plus a toggling square wave for tone
// injection.
type NoiseAndTone struct {
	randomGenerator uint32
	NoisePointPointRMS float64

	toneAmplitude float64
	toneHalfPeriodIters int
	toneTicksLeft       int
	toneSign            float64
}

// NewNoiseAndTone builds a generator with the library's fixed LCG seed.
func NewNoiseAndTone(pointPointRMS, toneAmplitude float64, toneHalfPeriodIters int) *NoiseAndTone {
	if toneHalfPeriodIters < 1 {
		toneHalfPeriodIters = 1
	}

	return &NoiseAndTone{
		randomGenerator:     0x8E35B19C,
		NoisePointPointRMS:  pointPointRMS,
		toneAmplitude:       toneAmplitude,
		toneHalfPeriodIters: toneHalfPeriodIters,
		toneTicksLeft:       toneHalfPeriodIters,
		toneSign:            1.0,
	}
}

// Next advances the LCG and square-tone state by one iteration and
// returns their sum, ready to be added to a simulated measurement.
func (n *NoiseAndTone) Next() float64 {
	// 32-bit LCG step (multiplier 1664525, increment 1013904223).
	n.randomGenerator = n.randomGenerator*1664525 + 1013904223

	// Read the generator as a signed 32-bit value, mapping it to
	// approximately [-0.5, 0.5] point-point, then scale to the configured
	// amplitude.
	uniform := float64(int32(n.randomGenerator)) / float64(math.MaxUint32)
	noise := uniform * n.NoisePointPointRMS

	toneValue := n.toneSign * n.toneAmplitude

	n.toneTicksLeft--
	if n.toneTicksLeft <= 0 {
		n.toneSign = -n.toneSign
		n.toneTicksLeft = n.toneHalfPeriodIters
	}

	return noise + toneValue
}
