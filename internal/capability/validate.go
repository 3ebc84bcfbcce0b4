// ABOUTME: Schema validation for capability arguments before dispatch.
// ABOUTME: Enforces required fields and type/enum constraints while tolerating unknown extras.

package capability

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ErrInvalidArguments wraps every argument validation failure. The gateway
// maps it to a JSON-RPC invalid-params error.
var ErrInvalidArguments = errors.New("invalid arguments")

// ValidateArgs checks args against the capability's declared object schema
// and returns a copy with declared defaults applied.
//
// The check is deliberately asymmetric: every declared-required field must
// be present, and declared fields must satisfy their type and enum
// constraints, but unknown extra fields are tolerated. Capabilities evolve
// their schemas independently of the client, so rejecting extras would
// break forward compatibility.
func ValidateArgs(schema *jsonschema.Schema, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	if schema == nil {
		return out, nil
	}

	// Apply declared defaults for absent fields first, so a defaulted field
	// can satisfy a required constraint.
	for name, prop := range schema.Properties {
		if _, present := out[name]; present || prop == nil || len(prop.Default) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(prop.Default, &v); err != nil {
			return nil, fmt.Errorf("%w: bad default for field %q: %v", ErrInvalidArguments, name, err)
		}
		out[name] = v
	}

	for _, required := range schema.Required {
		if _, present := out[required]; !present {
			return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidArguments, required)
		}
	}

	for name, prop := range schema.Properties {
		v, present := out[name]
		if !present || prop == nil {
			continue
		}
		if err := checkType(name, prop, v); err != nil {
			return nil, err
		}
		if err := checkEnum(name, prop, v); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// checkType validates a value against the property's declared JSON type.
// Properties without a declared type accept anything.
func checkType(name string, prop *jsonschema.Schema, v any) error {
	ok := true
	switch prop.Type {
	case "":
		// untyped property
	case "string":
		_, ok = v.(string)
	case "boolean":
		_, ok = v.(bool)
	case "integer":
		f, isNum := asFloat(v)
		ok = isNum && f == float64(int64(f))
	case "number":
		_, ok = asFloat(v)
	case "array":
		_, ok = v.([]any)
	case "object":
		_, ok = v.(map[string]any)
	}
	if !ok {
		return fmt.Errorf("%w: field %q must be of type %s", ErrInvalidArguments, name, prop.Type)
	}
	return nil
}

// checkEnum validates a value against the property's enum, if declared.
func checkEnum(name string, prop *jsonschema.Schema, v any) error {
	if len(prop.Enum) == 0 {
		return nil
	}
	for _, allowed := range prop.Enum {
		if equalJSONValue(v, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: field %q must be one of %v", ErrInvalidArguments, name, prop.Enum)
}

// equalJSONValue compares two decoded JSON scalars, normalizing numeric
// representations (json decodes numbers as float64, enum literals may be
// Go ints).
func equalJSONValue(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
