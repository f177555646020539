package helper

import (
	"encoding/binary"
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/span_tree/model"
	"github.com/cespare/xxhash/v2"
	commonV1 "go.opentelemetry.io/proto/otlp/common/v1"
	resourceV1 "go.opentelemetry.io/proto/otlp/resource/v1"
	"strconv"
	"strings"
	"time"
)

const UnknownServiceName = "Never Assigned"

// ToSpanId maps an OTLP span id onto a SpanId. Ids of the standard 8 bytes keep their
// big-endian value; anything else is hashed. Empty and all-zero ids mean "no span".
func ToSpanId(raw []byte) (model.SpanId, bool) {
	if len(raw) == 0 || isZero(raw) {
		return 0, false
	}
	if len(raw) == 8 {
		return model.SpanId(binary.BigEndian.Uint64(raw)), true
	}
	return model.SpanId(xxhash.Sum64(raw)), true
}

func ToCallsiteId(parts ...string) model.CallsiteId {
	return model.CallsiteId(xxhash.Sum64String(strings.Join(parts, "/")))
}

func ToTime(unixNano uint64) time.Time {
	return time.Unix(0, int64(unixNano)).UTC()
}

func GetServiceName(resource *resourceV1.Resource) string {
	var serviceName = UnknownServiceName
	if resource == nil {
		return serviceName
	}
	for _, attr := range resource.Attributes {
		if attr.Key == "service.name" {
			serviceName = attr.Value.GetStringValue()
		}
	}
	return serviceName
}

func GetScopeName(scope *commonV1.InstrumentationScope) string {
	if scope == nil {
		return ""
	}
	return scope.Name
}

func ToFields(attributes []*commonV1.KeyValue) model.Fields {
	fields := make(model.Fields, 0, len(attributes))
	for _, attribute := range attributes {
		fields = append(fields, model.Field{Key: attribute.Key, Value: AnyValueToString(attribute.Value)})
	}
	return fields
}

func AnyValueToString(value *commonV1.AnyValue) string {
	if value == nil {
		return ""
	}
	switch v := value.Value.(type) {
	case *commonV1.AnyValue_StringValue:
		return v.StringValue
	case *commonV1.AnyValue_BoolValue:
		return strconv.FormatBool(v.BoolValue)
	case *commonV1.AnyValue_IntValue:
		return strconv.FormatInt(v.IntValue, 10)
	case *commonV1.AnyValue_DoubleValue:
		return strconv.FormatFloat(v.DoubleValue, 'g', -1, 64)
	case *commonV1.AnyValue_BytesValue:
		return fmt.Sprintf("%x", v.BytesValue)
	case *commonV1.AnyValue_ArrayValue:
		parts := make([]string, len(v.ArrayValue.GetValues()))
		for i, element := range v.ArrayValue.GetValues() {
			parts[i] = AnyValueToString(element)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *commonV1.AnyValue_KvlistValue:
		parts := make([]string, len(v.KvlistValue.GetValues()))
		for i, kv := range v.KvlistValue.GetValues() {
			parts[i] = kv.Key + "=" + AnyValueToString(kv.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

func isZero(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}
