package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/refdriver"
)

func TestThings(t *testing.T) {
	f := record(t)

	f.g.RegisterThing(0xbeef)
	id := f.g.ThingIndex(0xbeef)
	assert.NotZero(t, id)
	assert.Equal(t, uintptr(0xbeef), f.g.IndexThing(id))

	f.g.UnregisterThing(0xbeef)
	assert.Zero(t, f.g.ThingIndex(0xbeef))

	g, _, _ := inactive()
	g.RegisterThing(0xbeef)
	assert.Zero(t, g.ThingIndex(0xbeef))
}

func TestExecutionProgress(t *testing.T) {
	f := record(t)

	var reached []uint64
	f.g.SetExecutionProgressCallback(func(v uint64) { reached = append(reached, v) })
	f.g.AdvanceExecutionProgressCounter()
	f.g.AdvanceExecutionProgressCounter()
	assert.Equal(t, uint64(2), f.g.ExecutionProgressCounter().Load())

	f.g.ExecutionProgressReached()
	assert.Equal(t, []uint64{2}, reached)
}

func TestActivityAndDiagnostics(t *testing.T) {
	f := record(t)
	f.g.NotifyActivity()
	f.g.NotifyActivity()
	assert.Equal(t, 2, f.drv.Activity())

	assert.NotPanics(t, func() {
		f.g.PrintLog("loaded %d modules", 3)
		f.g.Diagnostic("heap %s", "ok")
	})
}

func TestUIEventsForwarded(t *testing.T) {
	f := record(t)
	f.g.OnMouseEvent("mousedown", 10, 20)
	f.g.OnKeyEvent("keydown", "a")
	f.g.OnNavigationEvent("load", "https://example.com")

	assert.Equal(t, []any{"mousedown", 10, 20}, f.calls.Named(driver.SymOnMouseEvent)[0].Args)
	assert.Equal(t, []any{"keydown", "a"}, f.calls.Named(driver.SymOnKeyEvent)[0].Args)
	assert.Equal(t, []any{"load", "https://example.com"}, f.calls.Named(driver.SymOnNavigationEvent)[0].Args)
}

func TestAddProfilerEvent_DroppedWhenInactive(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"host"}, refdriver.Options{})
	f.g.AddProfilerEvent("paint", "{}")
	assert.Zero(t, f.calls.Count(driver.SymAddProfilerEvent))
}
