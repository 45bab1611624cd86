// Package conv implements the converter orchestrator: the mode state
// machine (NONE / VOLTAGE / CURRENT / FIELD) that ties the limits,
// measurement filter, load model, RST regulator, simulator and error
// monitor together into one per-tick pipeline.
//
// Grounded directly on original_source/libreg/src/conv.c
// (regConvInit, regConvRstInit, regConvInitSimLoad, regConvInitMeas,
// regConvSetModeRT, regConvSetMeasRT, regConvRegulateRT,
// regConvSimulateRT) and inc/libreg.h's struct reg_converter /
// struct reg_converter_pars field layout. Per the redesign notes
// (spec.md §9), the global reg_converter/reg_converter_pars singleton
// and the raw pointer to the caller's measurement struct are replaced
// with one explicitly owned Converter value per engine instance and a
// value-copy SetMeasurements call.
package conv

import (
	"fmt"
	"math"

	regerr "github.com/krystian-wojtas/ccreg/reg/err"
	"github.com/krystian-wojtas/ccreg/reg/lim"
	"github.com/krystian-wojtas/ccreg/reg/load"
	"github.com/krystian-wojtas/ccreg/reg/meas"
	"github.com/krystian-wojtas/ccreg/reg/rst"
	"github.com/krystian-wojtas/ccreg/reg/sim"
)

// Mode is the regulation state (reg_mode in the original library).
type Mode int

const (
	ModeNone Mode = iota
	ModeVoltage
	ModeCurrent
	ModeField
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "NONE"
	case ModeVoltage:
		return "VOLTAGE"
	case ModeCurrent:
		return "CURRENT"
	case ModeField:
		return "FIELD"
	default:
		return "UNKNOWN"
	}
}

// Actuation selects whether the converter physically commands a voltage
// or a current (reg_actuation).
type Actuation int

const (
	VoltageRef Actuation = iota
	CurrentRef
)

// RstSource names where a published RST design comes from (operational
// or test). Each channel has one RST engine, so the source is recorded
// but does not select a separate parameter set.
type RstSource int

const (
	OperationalRST RstSource = iota
	TestRST
)

// MeasStatus reports whether an input measurement sample is usable.
type MeasStatus int

const (
	MeasOK MeasStatus = iota
	MeasInvalid
)

// MeasSignal is one raw input sample plus its validity status.
type MeasSignal struct {
	Value  float64
	Status MeasStatus
}

// ChannelKind selects which regulated quantity a setter call targets.
type ChannelKind int

const (
	ChannelField ChannelKind = iota
	ChannelCurrent
	ChannelVoltage
)

// RegSelect picks which of a channel's three measurement views (§4.2)
// feeds the RST regulator and the "substitute on invalid input" logic.
type RegSelect int

const (
	RegSelectUnfiltered RegSelect = iota
	RegSelectFiltered
	RegSelectExtrapolated
)

// Q41Spec describes the sloped voltage exclusion zone imposed on the
// voltage channel in quadrants 4 and 1 (§4.1). A zone spanning under 1 A
// is ignored by lim.NewVoltageRef.
type Q41Spec struct {
	ICurrents [2]float64
	VVoltages [2]float64
}

// ManualRST supplies hand-picked R, S, T coefficients instead of having
// PublishRST run pole placement (regConvRstInit's manual_r/s/t path,
// used when conv.Actuation == CurrentRef since current-actuated
// converters have no voltage loop to design).
type ManualRST struct {
	R, S, T []float64
}

// RstPublishRequest bundles one rst.Design call's inputs plus the
// bookkeeping (source slot, manual override) that conv.c's
// regConvRstInit adds on top of the bare design.
type RstPublishRequest struct {
	Source           RstSource
	RegPeriodIters   int
	AuxPole1Hz       float64
	AuxPole2Hz       float64
	AuxPole2Damping  float64
	AuxPole4Hz       float64
	AuxPole5Hz       float64
	PureDelayPeriods  float64 // 0 means "derive from VS + measurement delay"
	TrackDelayPeriods float64 // initial track-delay estimate seed

	Manual *ManualRST
}

// regChannel is one regulated signal path (field or current): the raw
// input, the three filtered views, limits, error monitor and RST engine.
// Grounded on struct reg_conv_signal (conv->b / conv->i).
type regChannel struct {
	kind ChannelKind

	input MeasSignal

	filter *meas.Filter

	unfiltered, filtered, extrapolated float64
	regSelect                          RegSelect

	filterDelayIters float64 // meas_hw_delay + 0.5*(L0+L1-2), §4.2
	hwDelayIters     float64

	limMeas *lim.MeasLimits
	rms     *lim.Rms
	limRef  *lim.Ref
	errMon  *regerr.Monitor

	rstEngine      *rst.Engine
	rstSource      RstSource // which of op/test the currently active Params came from
	regPeriod      float64
	regPeriodIters int

	invalidInputCounter uint64

	ref, refLimited, refRST float64
}

func newRegChannel(kind ChannelKind) *regChannel {
	return &regChannel{kind: kind, regSelect: RegSelectExtrapolated}
}

// selectedMeas returns the measurement view this channel's regSelect
// currently points at, matching reg_signal->meas.signal[reg_select].
func (c *regChannel) selectedMeas() float64 {
	switch c.regSelect {
	case RegSelectUnfiltered:
		return c.unfiltered
	case RegSelectExtrapolated:
		return c.extrapolated
	default:
		return c.filtered
	}
}

// voltageChannel carries only error tracking and reference limits (§3:
// "the voltage channel carries only error tracking and limits").
type voltageChannel struct {
	meas   float64
	limRef *lim.Ref
	errMon *regerr.Monitor

	ref, refSat, refLimited float64

	invalidInputCounter uint64
}

// Converter is one fully owned regulation-and-simulation engine
// instance. Multiple Converters may coexist (e.g. one per test case);
// nothing here is process-global.
type Converter struct {
	IterPeriod float64
	Actuation  Actuation
	RstSource  RstSource

	mode Mode

	Field   *regChannel
	Current *regChannel
	Voltage *voltageChannel

	// Non-real-time load configuration, retained so SimInit can perturb
	// it by simTcError without needing the caller to resupply it.
	ohmsSer, ohmsPar, ohmsMag, henrys float64
	gaussPerAmp, lSat                 float64
	iSatStart, iSatEnd                float64

	Load       *load.Electrical
	Saturation *load.Saturation

	simVsConfig sim.VsConfig
	simVsPars   sim.VsPars
	simVsVars   sim.VsVars
	simLoad     sim.LoadPars
	simVars     sim.LoadVars
	simEnabled  bool

	fieldSim, currentSim, voltageSim *sim.Channel

	// regSignal points at whichever of Field/Current is the actively
	// regulated channel when mode is CURRENT or FIELD.
	regSignal *regChannel

	iterationCounter uint32
	refAdvance       float64

	ref, refLimited, refRST, refDelayed, meas float64

	vRef, vRefSat, vRefLimited float64

	flags struct {
		RefClip bool
		RefRate bool
	}

	// SimB/SimI/SimV are the most recent simulated measurements computed
	// by Simulate, ready to be fed back into the next SetMeasurements
	// call by the harness driving the tick loop.
	SimB, SimI, SimV MeasSignal
}

// New builds a converter for the given tick period and physical
// actuation, starting in ModeNone. Grounded on regConvInit.
func New(iterPeriod float64, actuation Actuation) *Converter {
	c := &Converter{
		IterPeriod: iterPeriod,
		Actuation:  actuation,
		Field:      newRegChannel(ChannelField),
		Current:    newRegChannel(ChannelCurrent),
		Voltage:    &voltageChannel{errMon: regerr.NewMonitor(0, 0)},
	}

	c.setModeNoneOrVoltage(ModeNone)

	return c
}

// Mode reports the current regulation state.
func (c *Converter) Mode() Mode { return c.mode }

// SetLoad builds the analytic circuit and saturation models from the
// physical magnet/circuit parameters (§4.3). Non-real-time.
func (c *Converter) SetLoad(ohmsSer, ohmsPar, ohmsMag, henrys, gaussPerAmp, lSat, iSatStart, iSatEnd float64) {
	c.ohmsSer, c.ohmsPar, c.ohmsMag, c.henrys = ohmsSer, ohmsPar, ohmsMag, henrys
	c.gaussPerAmp, c.lSat = gaussPerAmp, lSat
	c.iSatStart, c.iSatEnd = iSatStart, iSatEnd

	c.Load = load.NewElectrical(ohmsSer, ohmsPar, ohmsMag, henrys)
	c.Saturation = load.NewSaturation(gaussPerAmp, lSat, iSatStart, iSatEnd)
}

// MeasLimitsSpec configures the trip/low/zero measurement checks (§4.1).
type MeasLimitsSpec struct {
	Pos, Neg   float64
	Low, Zero  float64
	Invert     bool
}

// RmsLimitsSpec configures the single-pole RMS² thermal trip (§4.1).
type RmsLimitsSpec struct {
	Warning, Fault, TimeConstant float64
}

// RefLimitsSpec configures the absolute/rate reference clip (§4.1).
type RefLimitsSpec struct {
	Pos, Min, Neg, Rate, Acceleration float64
}

// SetLimits wires up a regulated channel's (or the voltage channel's)
// measurement, RMS and reference limit blocks in one non-real-time
// call. q41 is only meaningful for ChannelVoltage; it may be nil.
func (c *Converter) SetLimits(channel ChannelKind, m MeasLimitsSpec, r RmsLimitsSpec, ref RefLimitsSpec, q41 *Q41Spec) {
	switch channel {
	case ChannelField, ChannelCurrent:
		ch := c.channelFor(channel)
		ch.limMeas = lim.NewMeasLimits(m.Pos, m.Neg, m.Low, m.Zero, m.Invert)
		ch.rms = lim.NewRms(r.Warning, r.Fault, r.TimeConstant, c.IterPeriod)
		ch.limRef = lim.NewRef(ref.Pos, ref.Min, ref.Neg, ref.Rate, ref.Acceleration, 0)
		ch.errMon = regerr.NewMonitor(r.Warning, r.Fault)

	case ChannelVoltage:
		if q41 != nil {
			c.Voltage.limRef = lim.NewVoltageRef(ref.Pos, ref.Neg, ref.Rate, ref.Acceleration, q41.ICurrents, q41.VVoltages)
		} else {
			c.Voltage.limRef = lim.NewRef(ref.Pos, ref.Min, ref.Neg, ref.Rate, ref.Acceleration, 0)
		}
		c.Voltage.errMon = regerr.NewMonitor(r.Warning, r.Fault)
	}
}

// SetErrorRate chooses how often the field/current channel's error
// monitor is evaluated: every tick against the live measurement, or
// only at the regulation period (the default).
func (c *Converter) SetErrorRate(channel ChannelKind, rate regerr.Rate) {
	c.channelFor(channel).errMon.EvalRate = rate
}

// SetRegSelect picks which of a channel's unfiltered/filtered/extrapolated
// views feeds the regulator and the invalid-input substitution logic.
func (c *Converter) SetRegSelect(channel ChannelKind, sel RegSelect) {
	c.channelFor(channel).regSelect = sel
}

func (c *Converter) channelFor(kind ChannelKind) *regChannel {
	if kind == ChannelField {
		return c.Field
	}
	return c.Current
}

// SetMeasFilter builds a channel's two-stage box-car filter (§4.2).
// firLengths are the two cascaded stage lengths in iterations;
// extrapolationLenIters sizes the extrapolation ring (E); measHwDelay is
// the fixed hardware acquisition delay folded into FilterDelayIters.
func (c *Converter) SetMeasFilter(channel ChannelKind, firLengths [2]int, extrapolationLenIters int, posLimit, negLimit, measHwDelayIters float64) {
	ch := c.channelFor(channel)

	maxAbs := math.Abs(posLimit)
	if math.Abs(negLimit) > maxAbs {
		maxAbs = math.Abs(negLimit)
	}

	ch.filter = meas.NewFilter(firLengths[0], firLengths[1], maxAbs, c.IterPeriod)
	ch.hwDelayIters = measHwDelayIters
	ch.filterDelayIters = measHwDelayIters + 0.5*float64(firLengths[0]+firLengths[1]-2)

	if extrapolationLenIters > 0 {
		ch.filter.SetExtrapolationFactor(ch.filterDelayIters / float64(extrapolationLenIters))
	}
}

// PublishRST runs pole placement (or accepts manual coefficients) and
// stages the resulting design to take effect at the start of the next
// Tick. Grounded on regConvRstInit; this build keeps a
// single active/next baton per regulated channel rather than libreg's
// separate operational/test parameter pairs — req.Source is recorded on
// the channel for bookkeeping, but both sources share one
// history ring and one baton, since the spec's external interface table
// only names the source as an input field without further elaborating
// independent operational/test regulation (see DESIGN.md).
func (c *Converter) PublishRST(channel ChannelKind, req RstPublishRequest) (rst.Status, error) {
	ch := c.channelFor(channel)
	if ch.limRef == nil {
		return rst.StatusFault, fmt.Errorf("conv: SetLimits must be called for %v before PublishRST", channel)
	}

	regPeriod := float64(req.RegPeriodIters) * c.IterPeriod

	var p *rst.Params

	if req.Manual != nil {
		p = &rst.Params{R: req.Manual.R, S: req.Manual.S, T: req.Manual.T, Status: rst.StatusOK}
		if len(p.S) == 0 || p.S[0] < 1.0e-10 {
			p.Status = rst.StatusFault
		}
	} else {
		if c.Load == nil {
			return rst.StatusFault, fmt.Errorf("conv: SetLoad must be called before PublishRST designs a controller")
		}

		pureDelay := req.PureDelayPeriods
		if pureDelay <= 0.0 {
			pureDelay = (c.defaultVsDelayIters() + ch.hwDelayIters) / float64(req.RegPeriodIters)
		}

		p = rst.Design(rst.DesignInputs{
			Tau:              c.Load.Tau,
			RegPeriod:        regPeriod,
			AuxPole1Hz:       req.AuxPole1Hz,
			AuxPole2Hz:       req.AuxPole2Hz,
			AuxPole2Damping:  req.AuxPole2Damping,
			AuxPole4Hz:       req.AuxPole4Hz,
			AuxPole5Hz:       req.AuxPole5Hz,
			PureDelayPeriods: pureDelay,
		})
	}

	p.TrackDelayPeriods = req.TrackDelayPeriods

	if p.Status == rst.StatusFault {
		return p.Status, fmt.Errorf("conv: RST design for %v rejected: jury-unstable or S[0] too small", channel)
	}

	if ch.rstEngine == nil {
		ch.rstEngine = rst.NewEngine(p, regPeriod, rst.MaxCoeffs+4)
	}
	ch.rstEngine.PublishNext(p)
	ch.rstSource = req.Source
	ch.regPeriod = regPeriod
	ch.regPeriodIters = req.RegPeriodIters

	return p.Status, nil
}

// defaultVsDelayIters stands in for v_ref_delay_iters + vs_delay_iters
// when the caller lets PublishRST derive a pure-delay estimate: once a
// voltage source is resolved, one tick covers its own processing delay
// plus the v_ref pipeline stage ahead of it.
func (c *Converter) defaultVsDelayIters() float64 {
	if !c.simEnabled {
		return 0
	}
	return 1.0
}

// SetSimVoltageSource configures (but does not yet resolve) the
// simulator's voltage-source response; SimInit resolves it.
func (c *Converter) SetSimVoltageSource(config sim.VsConfig) {
	c.simVsConfig = config
}

// ChannelSimConfig configures one channel's simulated-measurement path:
// delay (in ticks), additive noise/tone, and the Bernoulli
// invalid-sample injection probability (§4.6).
type ChannelSimConfig struct {
	DelayIters          float64
	NoisePointPointRMS  float64
	ToneAmplitude       float64
	ToneHalfPeriodIters int
	InvalidProbability  float64
}

// SetSimMeasurement builds one channel's simulated-measurement pipeline.
// Must be called after SimInit has resolved the undersampled flags.
func (c *Converter) SetSimMeasurement(channel ChannelKind, cfg ChannelSimConfig) {
	// The voltage source's own undersampled flag governs every channel:
	// once its response settles within a tick there is no benefit to a
	// fractional delay line anywhere downstream of it.
	undersampled := c.simVsPars.Undersampled

	var noise *meas.NoiseAndTone
	if cfg.NoisePointPointRMS > 0 || cfg.ToneAmplitude > 0 {
		noise = meas.NewNoiseAndTone(cfg.NoisePointPointRMS, cfg.ToneAmplitude, cfg.ToneHalfPeriodIters)
	}

	sc := sim.NewChannel(cfg.DelayIters, undersampled, noise, cfg.InvalidProbability)

	switch channel {
	case ChannelField:
		c.fieldSim = sc
	case ChannelCurrent:
		c.currentSim = sc
	case ChannelVoltage:
		c.voltageSim = sc
	}
}

// SimInit resolves the voltage-source response and seeds the simulated
// load from the channel currently selected by mode, perturbing the
// model's time constant by simTcError (a fractional error deliberately
// injected so regression tests can probe RST robustness against plant
// mismatch). Grounded on regConvInitSimLoad.
func (c *Converter) SimInit(mode Mode, simTcError float64) error {
	if c.Load == nil || c.Saturation == nil {
		return fmt.Errorf("conv: SetLoad must be called before SimInit")
	}

	if err := sim.InitVs(&c.simVsConfig, c.IterPeriod, &c.simVsPars); err != nil {
		return err
	}

	perturbedHenrys := c.henrys * (1.0 + simTcError)
	c.simLoad = sim.LoadPars{
		Electrical: load.NewElectrical(c.ohmsSer, c.ohmsPar, c.ohmsMag, perturbedHenrys),
		Saturation: c.Saturation,
	}
	c.simVars = sim.LoadVars{}
	c.simEnabled = true

	switch mode {
	case ModeCurrent:
		c.simVars.MagnetCurrent = c.Current.unfiltered
		c.simVars.CircuitCurrent = c.Current.unfiltered
		c.simVars.MagnetField = c.Saturation.Field(c.simVars.MagnetCurrent)
	case ModeField:
		i := c.Saturation.GaussToAmps(c.Field.unfiltered)
		c.simVars.MagnetCurrent = i
		c.simVars.CircuitCurrent = i
		c.simVars.MagnetField = c.Field.unfiltered
	default:
		c.simVars.CircuitVoltage = c.Voltage.meas
	}

	c.Voltage.meas = c.simVars.CircuitVoltage
	c.Current.unfiltered = c.simVars.CircuitCurrent
	c.Current.filtered = c.simVars.CircuitCurrent
	c.Field.unfiltered = c.simVars.MagnetField
	c.Field.filtered = c.simVars.MagnetField

	return nil
}

// SetMeasurements copies this tick's raw input samples in, replacing any
// lingering raw pointer to caller-owned state (spec.md §9's "Ownership
// of measurement input" redesign note). Field and Current substitute an
// invalid sample in intakeMeasurement once regSelect and errMon state
// are known; the voltage channel has neither, so it substitutes here,
// matching regConvSetMeasRT's `conv->v.meas = conv->v.err.delayed_ref`.
func (c *Converter) SetMeasurements(field, current, voltage MeasSignal) {
	c.Field.input = field
	c.Current.input = current

	if voltage.Status == MeasInvalid {
		c.Voltage.invalidInputCounter++
		c.Voltage.meas = c.Voltage.errMon.DelayedRef
	} else {
		c.Voltage.meas = voltage.Value
	}
}
