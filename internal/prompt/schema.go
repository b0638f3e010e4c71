package prompt

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
)

// Schema builds a JSON schema for a Go struct using reflection. Nested
// structs and slice element types are described recursively; fields with
// omitempty are optional.
func Schema(v any) map[string]any {
	return schemaOf(reflect.TypeOf(v))
}

func schemaOf(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		properties := make(map[string]any)
		required := make([]string, 0)
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			jsonTag := field.Tag.Get("json")
			if jsonTag == "-" {
				continue
			}
			name := field.Name
			if parts := strings.Split(jsonTag, ","); parts[0] != "" {
				name = parts[0]
			}
			fs := schemaOf(field.Type)
			if description := field.Tag.Get("description"); description != "" {
				fs["description"] = description
			}
			properties[name] = fs
			if !strings.Contains(jsonTag, "omitempty") && field.Type.Kind() != reflect.Ptr {
				required = append(required, name)
			}
		}
		schema := map[string]any{"type": "object", "properties": properties}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaOf(t.Elem())}
	case reflect.Map:
		return map[string]any{"type": "object"}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"type": "string"}
	}
}

// JSONInstruction returns a system-prompt suffix asking for output matching v.
func JSONInstruction(v any) string {
	raw, err := json.Marshal(Schema(v))
	if err != nil {
		return "Respond with a single JSON object."
	}
	return "Respond with a single JSON object matching this JSON schema:\n" + string(raw)
}

// Decode parses the first JSON object in text into a T. Code fences and
// surrounding prose are tolerated. Malformed output is a retryable
// validation failure.
func Decode[T any](task, text string) (T, error) {
	var out T
	body := extractObject(text)
	if body == "" {
		return out, core.Retryable(core.Validationf("%s: no JSON object in model output", task))
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, core.Retryable(core.Validationf("%s: malformed JSON: %v", task, err))
	}
	return out, nil
}

func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
