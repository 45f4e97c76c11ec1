package collections

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neal-yes/rag-gateway/pkg/telemetry"
)

func (e *Exporter) tracer() trace.Tracer {
	return telemetry.GetTracer(&telemetry.Settings{IsEnabled: e.Tracer != nil, Tracer: e.Tracer})
}

func jobAttributes(taskID, collection, tenant string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("gateway.task_id", taskID),
		attribute.String("gateway.collection", collection),
		attribute.String("gateway.tenant", tenant),
	}
}
