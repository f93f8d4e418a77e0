package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithNamespace("ui"),
		WithSubsystem("host"),
		WithConstLabels(prometheus.Labels{"server": "lobby"}),
		WithBuckets([]float64{.01, .1}),
	)

	script := dom.Script{
		{Type: dom.OpInsert},
		{Type: dom.OpUpdate},
		{Type: dom.OpRemove},
	}
	m.ObserveScript(script, 1, true)
	m.ObserveScript(script, 3, false)
	m.ObserveRender(ResultOK, 5*time.Millisecond)
	m.ObserveResync()
	m.ObserveTeardown(ResultError)
	m.SurfaceOpened()
	m.SurfaceOpened()
	m.SurfaceClosed()

	expected := `
# HELP ui_host_ops_applied_total Total number of edit ops applied to hosts
# TYPE ui_host_ops_applied_total counter
ui_host_ops_applied_total{op="Insert",server="lobby"} 2
ui_host_ops_applied_total{op="Remove",server="lobby"} 1
ui_host_ops_applied_total{op="Update",server="lobby"} 1
# HELP ui_host_patch_failures_total Total number of edit ops that failed on the host
# TYPE ui_host_patch_failures_total counter
ui_host_patch_failures_total{op="Update",server="lobby"} 1
# HELP ui_host_active_surfaces Number of open surfaces
# TYPE ui_host_active_surfaces gauge
ui_host_active_surfaces{server="lobby"} 1
# HELP ui_host_resyncs_total Total number of full resyncs after a failed render
# TYPE ui_host_resyncs_total counter
ui_host_resyncs_total{server="lobby"} 1
# HELP ui_host_teardowns_total Total number of teardowns by result
# TYPE ui_host_teardowns_total counter
ui_host_teardowns_total{result="error",server="lobby"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"ui_host_ops_applied_total",
		"ui_host_patch_failures_total",
		"ui_host_active_surfaces",
		"ui_host_resyncs_total",
		"ui_host_teardowns_total",
	)
	assert.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "ui_host_render_duration_seconds" {
			h := mf.GetMetric()[0].GetHistogram()
			assert.Equal(t, uint64(1), h.GetSampleCount())
			assert.Len(t, h.GetBucket(), 2)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRender(ResultOK, time.Second)
		m.ObserveScript(dom.Script{{Type: dom.OpInsert}}, 1, false)
		m.ObserveResync()
		m.ObserveTeardown(ResultOK)
		m.SurfaceOpened()
		m.SurfaceClosed()
	})
}

func TestNewMetricsPanicsOnDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))
	assert.Panics(t, func() { NewMetrics(WithRegistry(reg)) })
}

type recordingSpan struct {
	trace.Span
	code  codes.Code
	desc  string
	errs  []error
	ended bool
}

func (s *recordingSpan) SetStatus(code codes.Code, desc string) {
	s.code = code
	s.desc = desc
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestEndSpan(t *testing.T) {
	_, base := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "x")

	ok := &recordingSpan{Span: base}
	EndSpan(ok, nil)
	assert.True(t, ok.ended)
	assert.Equal(t, codes.Ok, ok.code)
	assert.Empty(t, ok.errs)

	failed := &recordingSpan{Span: base}
	boom := errors.New("boom")
	EndSpan(failed, boom)
	assert.True(t, failed.ended)
	assert.Equal(t, codes.Error, failed.code)
	assert.Equal(t, "boom", failed.desc)
	assert.Equal(t, []error{boom}, failed.errs)
}

func TestStartSpan(t *testing.T) {
	ctx, span := StartSpan(context.Background(), noop.NewTracerProvider().Tracer("test"), "delphi.render",
		AttrSurface.String("shop"), AttrOpCount.Int(3))
	defer span.End()

	assert.NotNil(t, ctx)
	assert.Equal(t, span, trace.SpanFromContext(ctx))
	assert.NotNil(t, Tracer())
}
