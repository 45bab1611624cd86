package err

import "testing"

func TestCheckComputesSignedError(t *testing.T) {
	m := NewMonitor(1.0, 5.0)
	m.Check(true, true, 10.0, 9.0)

	if m.Err != 1.0 {
		t.Fatalf("expected err=1, got %v", m.Err)
	}
}

func TestCheckTracksRunningMaxAbsError(t *testing.T) {
	m := NewMonitor(100.0, 100.0)

	m.Check(true, true, 10.0, 9.0)
	m.Check(true, true, 10.0, 3.0)
	m.Check(true, true, 10.0, 9.5)

	if m.MaxAbsErr != 7.0 {
		t.Fatalf("expected running max abs error to stick at 7, got %v", m.MaxAbsErr)
	}
}

func TestCheckSetsWarningAndFaultFlags(t *testing.T) {
	m := NewMonitor(1.0, 5.0)

	m.Check(true, true, 10.0, 9.5)
	if m.Warning {
		t.Fatalf("did not expect warning at 0.5 error with threshold 1.0")
	}

	m.Check(true, true, 10.0, 8.5)
	if !m.Warning || m.Fault {
		t.Fatalf("expected warning but not fault at 1.5 error: warning=%v fault=%v", m.Warning, m.Fault)
	}

	m.Check(true, true, 10.0, 3.0)
	if !m.Fault {
		t.Fatalf("expected fault at 7.0 error with threshold 5.0")
	}
}

func TestCheckDisabledLeavesErrUnchanged(t *testing.T) {
	m := NewMonitor(1.0, 5.0)
	m.Check(true, true, 10.0, 0.0)
	prevErr := m.Err

	m.Check(false, true, 10.0, 9.9)
	if m.Err != prevErr {
		t.Fatalf("expected err to stay at %v when disabled, got %v", prevErr, m.Err)
	}
}

func TestCheckMaxAbsErrDisabledDoesNotUpdate(t *testing.T) {
	m := NewMonitor(100.0, 100.0)
	m.Check(true, false, 10.0, 0.0)
	if m.MaxAbsErr != 0.0 {
		t.Fatalf("expected max abs err to stay at zero when disabled, got %v", m.MaxAbsErr)
	}
}

func TestResetClearsState(t *testing.T) {
	m := NewMonitor(1.0, 5.0)
	m.Check(true, true, 10.0, 0.0)

	m.Reset()

	if m.Err != 0 || m.MaxAbsErr != 0 || m.Warning || m.Fault {
		t.Fatalf("expected full reset, got %+v", m)
	}
}
