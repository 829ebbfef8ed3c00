package run

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/videoconf/internal/config"
)

type recordObserver struct {
	startCalls int
	phases     []string
	fields     map[string]map[string]any
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.phases = append(o.phases, name)
	if o.fields == nil {
		o.fields = map[string]map[string]any{}
	}
	o.fields[name] = fields
}

func TestExecute_EmitsPhaseEvents(t *testing.T) {
	_, eff := setup(t, "a.mp4", "b.webm")

	obs := &recordObserver{}
	rr := Execute(context.Background(), eff, Options{}, obs)
	require.False(t, rr.Failed())

	assert.Equal(t, 1, obs.startCalls)
	assert.Equal(t, []string{PhaseScan, PhaseWrite}, obs.phases)
	assert.Equal(t, 2, obs.fields[PhaseScan]["files"])
	assert.Equal(t, int64(2), obs.fields[PhaseScan]["total_size"])
	assert.Equal(t, eff.Output, obs.fields[PhaseWrite]["output"])
}

func TestExecute_FailureStopsEvents(t *testing.T) {
	eff := config.Default(t.TempDir())

	obs := &recordObserver{}
	rr := Execute(context.Background(), eff, Options{}, obs)
	require.True(t, rr.Failed())

	assert.Equal(t, 1, obs.startCalls)
	assert.Empty(t, obs.phases)
}

func TestExecute_DryRunSkipsWritePhase(t *testing.T) {
	_, eff := setup(t, "a.mp4")

	obs := &recordObserver{}
	rr := Execute(context.Background(), eff, Options{DryRun: true}, obs)
	require.False(t, rr.Failed())
	assert.Equal(t, []string{PhaseScan}, obs.phases)
}
