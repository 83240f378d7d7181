package collection

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterScope          = "github.com/compozy/listview/engine/collection"
	outcomeSuccessValue = "success"
	outcomeErrorValue   = "error"
)

type storeMetrics struct {
	saves        metric.Int64Counter
	mutations    metric.Int64Counter
	saveDuration metric.Float64Histogram
}

func defaultMeter() metric.Meter {
	return otel.Meter(meterScope)
}

func newStoreMetrics(meter metric.Meter) (*storeMetrics, error) {
	if meter == nil {
		return &storeMetrics{}, nil
	}
	saves, err := meter.Int64Counter(
		"listview.collection.saves",
		metric.WithDescription("Collection writes to a slot"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create saves counter: %w", err)
	}
	mutations, err := meter.Int64Counter(
		"listview.collection.mutations",
		metric.WithDescription("Committed or rejected record mutations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mutations counter: %w", err)
	}
	saveDuration, err := meter.Float64Histogram(
		"listview.collection.save_duration_seconds",
		metric.WithDescription("Slot write latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create save duration histogram: %w", err)
	}
	return &storeMetrics{saves: saves, mutations: mutations, saveDuration: saveDuration}, nil
}

func outcome(err error) string {
	if err != nil {
		return outcomeErrorValue
	}
	return outcomeSuccessValue
}

func (m *storeMetrics) recordSave(ctx context.Context, slotName string, took time.Duration, err error) {
	if m.saves == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("slot", slotName), attribute.String("outcome", outcome(err)))
	m.saves.Add(ctx, 1, attrs)
	m.saveDuration.Record(ctx, took.Seconds(), attrs)
}

func (m *storeMetrics) recordMutation(ctx context.Context, slotName, op string, err error) {
	if m.mutations == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("slot", slotName),
		attribute.String("op", op),
		attribute.String("outcome", outcome(err)),
	))
}
