package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RecordsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := New(Options{ServiceName: "assistant-test", Registerer: reg})
	require.NoError(t, err)
	defer func() { _ = obs.Shutdown(context.Background()) }()

	ctx, span := obs.StartSpan(context.Background(), "create_plan")
	assert.True(t, span.SpanContext().IsValid())
	obs.RecordStage(ctx, "create_plan", 15*time.Millisecond, "ok")
	obs.RecordJobProcessed(ctx, "assistant.create-plan", "completed")
	EndSpan(span, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "pipeline_stages_total")
	assert.Contains(t, names, "jobs_processed_total")
}

func TestNilAndNoopAreSafe(t *testing.T) {
	var nilObs *Observability
	_, span := nilObs.StartSpan(context.Background(), "x")
	EndSpan(span, errors.New("ignored"))
	nilObs.RecordStage(context.Background(), "x", time.Millisecond, "error")
	assert.NoError(t, nilObs.Shutdown(context.Background()))

	_, span = NewNoop().StartSpan(context.Background(), "y")
	EndSpan(span, nil)
}
