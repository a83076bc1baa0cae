package service

import (
	"encoding/json"
	"math"
	"reflect"
	"strings"

	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/logger"
)

// Markers substituted for values the fallback encoders refuse to serialize
const (
	circularMarker    = "[Circular]"
	depthMarker       = "[MaxDepth]"
	unsupportedMarker = "[Unsupported]"

	maxEncodeDepth = 10
)

// marshalPayload serializes v with an escalating fallback chain:
// plain encoding, then a cycle-safe pass that replaces revisited objects with
// a circular marker, then a depth-capped pass. Only when all three fail does
// the write become a serialization error
func marshalPayload(v any, log logger.Logger) ([]byte, error) {
	b, err := json.Marshal(v)
	if err == nil {
		return b, nil
	}
	log.Warn().Err(err).Msg("plain json encode failed, retrying cycle-safe")

	b, err2 := json.Marshal(sanitizeCycles(v))
	if err2 == nil {
		return b, nil
	}
	log.Warn().Err(err2).Msg("cycle-safe encode failed, falling back to depth-capped encoder")

	b, err3 := json.Marshal(capDepth(v, maxEncodeDepth))
	if err3 == nil {
		return b, nil
	}
	return nil, perr.Wrapf(err3, perr.ErrorCodeSerialization, "payload defeated every encoder")
}

// sanitizeCycles rebuilds v as plain maps/slices/scalars, replacing any
// pointer, map, or slice already visited during this traversal with the
// circular marker. Values encoding/json cannot represent become markers too
func sanitizeCycles(v any) any {
	return walkCycles(reflect.ValueOf(v), map[uintptr]bool{})
}

func walkCycles(v reflect.Value, seen map[uintptr]bool) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return walkCycles(v.Elem(), seen)
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if p := v.Pointer(); p != 0 {
			if seen[p] {
				return circularMarker
			}
			seen[p] = true
		}
		return walkCycles(v.Elem(), seen)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if p := v.Pointer(); seen[p] {
			return circularMarker
		} else {
			seen[p] = true
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = walkCycles(iter.Value(), seen)
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if p := v.Pointer(); seen[p] {
			return circularMarker
		} else {
			seen[p] = true
		}
		return walkSeq(v, seen)
	case reflect.Array:
		return walkSeq(v, seen)
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := jsonFieldName(f)
			if skip {
				continue
			}
			out[name] = walkCycles(v.Field(i), seen)
		}
		return out
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return unsupportedMarker
		}
		return f
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return unsupportedMarker
	default:
		return v.Interface()
	}
}

func walkSeq(v reflect.Value, seen map[uintptr]bool) []any {
	out := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		out[i] = walkCycles(v.Index(i), seen)
	}
	return out
}

// capDepth rebuilds v up to depth levels, substituting the depth marker below
// the cap. No cycle tracking: a cycle simply bottoms out at the cap
func capDepth(v any, depth int) any {
	return walkDepth(reflect.ValueOf(v), depth)
}

func walkDepth(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth <= 0 {
		return depthMarker
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return walkDepth(v.Elem(), depth)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = walkDepth(iter.Value(), depth-1)
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = walkDepth(v.Index(i), depth-1)
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := jsonFieldName(f)
			if skip {
				continue
			}
			out[name] = walkDepth(v.Field(i), depth-1)
		}
		return out
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return unsupportedMarker
		}
		return f
	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return unsupportedMarker
	default:
		return v.Interface()
	}
}

// mapKey renders a map key as a JSON object key
func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	b, err := json.Marshal(k.Interface())
	if err != nil {
		return unsupportedMarker
	}
	return strings.Trim(string(b), `"`)
}

// jsonFieldName honors the first segment of a `json` tag
func jsonFieldName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name, false
		}
	}
	return f.Name, false
}
