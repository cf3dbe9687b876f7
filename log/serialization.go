package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LogMessageWire is one JSON line on the guest log channel.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
}

// LogAttrWire carries an attribute as text tagged with the kind it came from,
// so the host can rebuild a typed field.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

var kindNames = map[slog.Kind]string{
	slog.KindString:   "string",
	slog.KindInt64:    "int64",
	slog.KindUint64:   "uint64",
	slog.KindBool:     "bool",
	slog.KindFloat64:  "float64",
	slog.KindTime:     "time",
	slog.KindDuration: "duration",
	slog.KindGroup:    "group",
}

func toLogAttrWire(attr slog.Attr) LogAttrWire {
	v := attr.Value.Resolve()
	if v.Kind() == slog.KindAny {
		typ, text := formatAny(v.Any())
		return LogAttrWire{Key: attr.Key, Type: typ, Value: text}
	}
	typ, ok := kindNames[v.Kind()]
	if !ok {
		typ = "any"
	}
	return LogAttrWire{Key: attr.Key, Type: typ, Value: formatScalar(v)}
}

func formatScalar(v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 6, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindGroup:
		// Group members stay inside a single attribute.
		return fmt.Sprint(v.Group())
	default:
		return v.String()
	}
}

// formatAny prefers the error text, then JSON, then fmt.
func formatAny(x any) (string, string) {
	if x == nil {
		return "any", "<nil>"
	}
	if err, ok := x.(error); ok {
		return "error", err.Error()
	}
	if data, err := json.Marshal(x); err == nil {
		return "json", string(data)
	}
	return "any", fmt.Sprint(x)
}
