package main

import (
	"fmt"
	"time"

	"github.com/krystian-wojtas/ccreg/reg/conv"
	"github.com/krystian-wojtas/ccreg/reg/fg"
	"github.com/krystian-wojtas/ccreg/reg/fg/plep"
	"github.com/nsf/termbox-go"
)

const (
	colDef    = termbox.ColorDefault
	colWhite  = termbox.ColorWhite
	colRed    = termbox.ColorRed
	colGreen  = termbox.ColorGreen
	colYellow = termbox.ColorYellow
	colCyan   = termbox.ColorCyan
)

// TUIState tracks one live scenario run: the converter being ticked, the
// scenario driving it, and the wall-clock tick index.
type TUIState struct {
	conv *conv.Converter
	def  ScenarioDef

	plepPars *plep.Pars // resolved trajectory, non-nil only for reference.kind == "plep"
	tick     int
	exit     bool
}

// runTUI drives the converter one tick per redraw, showing mode,
// reference, measurement, RST status and limit flags instead of the
// teacher's compressor metering. The redraw-loop-plus-key-event-channel
// shape is unchanged from the teacher's tui.go.
func runTUI(c *conv.Converter, def ScenarioDef) {
	err := termbox.Init()
	if err != nil {
		fmt.Printf("Failed to initialize TUI: %v\n", err)
		return
	}
	defer termbox.Close()

	termbox.SetInputMode(termbox.InputEsc)

	c.SetMode(parseMode(def.Mode))

	state := &TUIState{conv: c, def: def}

	if def.Reference.Kind == "plep" {
		pars := &plep.Pars{}
		limits := &fg.Limits{Pos: def.CurrentLimits.Pos, Min: def.CurrentLimits.Min, Neg: def.CurrentLimits.Neg, Rate: def.CurrentLimits.Rate, Acceleration: def.CurrentLimits.Acceleration}
		cfg := &plep.Config{
			Final:        def.Reference.PLEP.Final,
			Acceleration: def.Reference.PLEP.Acceleration,
			LinearRate:   def.Reference.PLEP.LinearRate,
			FinalRate:    def.Reference.PLEP.FinalRate,
		}
		if e := plep.Init(limits, fg.PolarityNormal, cfg, 0, 0, pars, nil); e == fg.ErrNone {
			state.plepPars = pars
		}
	}

	eventQueue := make(chan termbox.Event)
	go func() {
		for {
			eventQueue <- termbox.PollEvent()
		}
	}()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	draw(state)

	for !state.exit {
		select {
		case ev := <-eventQueue:
			if ev.Type == termbox.EventKey && (ev.Key == termbox.KeyEsc || ev.Ch == 'q') {
				state.exit = true
			}
			if ev.Type == termbox.EventResize {
				draw(state)
			}
		case <-ticker.C:
			stepTick(state)
			draw(state)
		}
	}
}

// stepTick advances the scenario by one tick, reusing the same
// reference-signal logic Run uses for headless scenario execution.
func stepTick(s *TUIState) {
	c := s.conv
	def := s.def
	t := float64(s.tick) * def.IterPeriod

	field := conv.MeasSignal{Value: c.SimB.Value, Status: conv.MeasOK}
	current := conv.MeasSignal{Value: c.SimI.Value, Status: conv.MeasOK}
	voltage := conv.MeasSignal{Value: c.SimV.Value, Status: conv.MeasOK}

	if def.InvalidEveryOtherTick && s.tick%2 == 1 {
		switch def.InvalidChannel {
		case "field":
			field.Status = conv.MeasInvalid
		case "current":
			current.Status = conv.MeasInvalid
		}
	}

	c.SetMeasurements(field, current, voltage)
	c.Tick(refSignal(def, s.plepPars, t), true)
	c.Simulate(0)

	s.tick++
}

func draw(s *TUIState) {
	_ = termbox.Clear(colDef, colDef)

	c := s.conv
	st := c.State()
	t := float64(s.tick) * s.def.IterPeriod

	printTB(0, 0, colCyan, colDef, fmt.Sprintf("ccreg — %s", s.def.Name))
	printTB(0, 1, colWhite, colDef, s.def.Description)
	printTB(0, 2, colDef, colDef, fmt.Sprintf("t=%.3fs  mode=%-8v  tick=%d", t, st.Mode, s.tick))
	printTB(0, 3, colDef, colDef, "'q' or Esc to quit.")
	printTB(0, 4, colDef, colDef, "----------------------------------------------------")

	printTB(0, 6, colYellow, colDef, "Reference:")
	printTB(2, 7, colWhite, colDef, fmt.Sprintf("ref          %10.4f", st.Ref))
	printTB(2, 8, colWhite, colDef, fmt.Sprintf("ref_limited  %10.4f", st.RefLimited))
	printTB(2, 9, colWhite, colDef, fmt.Sprintf("v_ref        %10.4f", st.VRef))
	printTB(2, 10, colWhite, colDef, fmt.Sprintf("v_ref_limited%10.4f", st.VRefLimited))

	printTB(0, 12, colYellow, colDef, "Measurements:")
	printTB(2, 13, colGreen, colDef, fmt.Sprintf("field        %10.4f  (unfilt %10.4f)", st.Field.Filtered, st.Field.Unfiltered))
	printTB(2, 14, colGreen, colDef, fmt.Sprintf("current      %10.4f  (unfilt %10.4f)", st.Current.Filtered, st.Current.Unfiltered))

	flagColor := func(b bool) termbox.Attribute {
		if b {
			return colRed
		}
		return colWhite
	}

	printTB(0, 16, colYellow, colDef, "Flags:")
	printTB(2, 17, flagColor(st.RefClip), colDef, fmt.Sprintf("ref_clip=%-5v ref_rate=%-5v", st.RefClip, st.RefRate))
	printTB(2, 18, flagColor(st.Current.RmsFlags.Fault), colDef,
		fmt.Sprintf("current: trip=%-5v rms_warn=%-5v rms_fault=%-5v invalid=%d",
			st.Current.MeasFlags.Trip, st.Current.RmsFlags.Warning, st.Current.RmsFlags.Fault, st.Current.InvalidInputCount))
	printTB(2, 19, flagColor(st.Field.Fault), colDef,
		fmt.Sprintf("field:   trip=%-5v err=%-10.4f max_abs_err=%-10.4f invalid=%d",
			st.Field.MeasFlags.Trip, st.Field.Err, st.Field.MaxAbsErr, st.Field.InvalidInputCount))

	rstStatus, marginDB := c.RstStatus(regChannelFor(s.def))
	printTB(0, 21, colYellow, colDef, fmt.Sprintf("RST: status=%v  modulus_margin=%.2f dB", rstStatus, marginDB))

	termbox.Flush()
}

func regChannelFor(def ScenarioDef) conv.ChannelKind {
	if def.Mode == "field" {
		return conv.ChannelField
	}
	return conv.ChannelCurrent
}

func printTB(x, y int, fgColor, bgColor termbox.Attribute, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, fgColor, bgColor)
		x++
	}
}
