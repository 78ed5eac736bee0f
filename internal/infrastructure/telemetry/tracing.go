package telemetry

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of application spans.
const TracerName = "orderdesk"

// StartServiceSpan opens an internal span named "{service}.{method}", for example
// "order.transition_status". The caller ends it.
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span failed with err. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent annotates the span active in ctx, if any.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// Span attributes
var (
	attrOrderID      = attribute.Key("order.id")
	attrOrderNumber  = attribute.Key("order.number")
	attrTargetStatus = attribute.Key("order.target_status")
	attrItemCount    = attribute.Key("order.item_count")
	attrStockEffect  = attribute.Key("order.stock_effect")
	attrActorID      = attribute.Key("actor.id")
	attrActorRole    = attribute.Key("actor.role")
	attrProductID    = attribute.Key("product.id")
	attrQuantity     = attribute.Key("stock.quantity")
	attrUnit         = attribute.Key("stock.unit")
	attrEventType    = attribute.Key("event.type")
	attrEventID      = attribute.Key("event.id")
)

func OrderID(id uuid.UUID) attribute.KeyValue       { return attrOrderID.String(id.String()) }
func OrderNumber(n string) attribute.KeyValue       { return attrOrderNumber.String(n) }
func TargetStatus(s string) attribute.KeyValue      { return attrTargetStatus.String(s) }
func ItemCount(n int) attribute.KeyValue            { return attrItemCount.Int(n) }
func StockEffect(e string) attribute.KeyValue       { return attrStockEffect.String(e) }
func ActorID(id uuid.UUID) attribute.KeyValue       { return attrActorID.String(id.String()) }
func ActorRole(r string) attribute.KeyValue         { return attrActorRole.String(r) }
func ProductID(id uuid.UUID) attribute.KeyValue     { return attrProductID.String(id.String()) }
func Quantity(q decimal.Decimal) attribute.KeyValue { return attrQuantity.String(q.String()) }
func Unit(u string) attribute.KeyValue              { return attrUnit.String(u) }
func EventType(t string) attribute.KeyValue         { return attrEventType.String(t) }
func EventID(id uuid.UUID) attribute.KeyValue       { return attrEventID.String(id.String()) }
