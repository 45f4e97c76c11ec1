package ask

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neal-yes/rag-gateway/pkg/telemetry"
)

// tracer returns the pipeline's configured tracer, or a no-op tracer
// when none was wired (telemetry is opt-in, same as the teacher's
// Settings.IsEnabled default).
func (p *Pipeline) tracer() trace.Tracer {
	return telemetry.GetTracer(&telemetry.Settings{IsEnabled: p.Tracer != nil, Tracer: p.Tracer})
}

func gatewayAttributes(tenant, requestID, collection string, useRAG bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("gateway.tenant", tenant),
		attribute.String("gateway.request_id", requestID),
		attribute.String("gateway.collection", collection),
		attribute.Bool("gateway.use_rag", useRAG),
	}
}
