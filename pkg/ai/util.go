package ai

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// DecodePath records which strategy recovered a response.
type DecodePath int

const (
	// DecodedDirect is a response that was valid JSON as returned.
	DecodedDirect DecodePath = iota
	// DecodedUnquoted is a JSON document wrapped in a JSON string.
	DecodedUnquoted
	// DecodedRepaired needed jsonrepair before it parsed.
	DecodedRepaired
)

func (p DecodePath) String() string {
	switch p {
	case DecodedDirect:
		return "direct"
	case DecodedUnquoted:
		return "unquoted"
	case DecodedRepaired:
		return "repaired"
	}
	return fmt.Sprintf("DecodePath(%d)", int(p))
}

var schemas sync.Map // reflect.Type -> *jsonschema.Schema

// GenerateSchema returns the strict JSON schema of the struct value points
// to. Schemas are reflected once per type; requests and cache keys share
// them.
func GenerateSchema(value any) any {
	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if s, ok := schemas.Load(t); ok {
		return s
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s, _ := schemas.LoadOrStore(t, reflector.Reflect(reflect.New(t).Interface()))
	return s
}

// DecodeResponse fills out from a model answer. Answers that are not plain
// JSON are unwrapped when they arrive as a JSON string and repaired when they
// are malformed, e.g. single quotes, unquoted keys, trailing commas or a
// doubled opening brace.
func DecodeResponse(input string, out any) (DecodePath, error) {
	input = strings.TrimSpace(input)
	if err := json.Unmarshal([]byte(input), out); err == nil {
		return DecodedDirect, nil
	}

	var inner string
	if err := json.Unmarshal([]byte(input), &inner); err == nil {
		inner = strings.TrimSpace(inner)
		if err := json.Unmarshal([]byte(inner), out); err == nil {
			return DecodedUnquoted, nil
		}
		input = inner
	}

	input = dropDoubledBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return DecodedRepaired, fmt.Errorf("failed to repair response %q: %w", input, err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return DecodedRepaired, fmt.Errorf("failed to decode repaired response %q: %w", repaired, err)
	}
	return DecodedRepaired, nil
}

// dropDoubledBrace turns "{ {" at the start of s into "{".
func dropDoubledBrace(s string) string {
	rest, ok := strings.CutPrefix(s, "{")
	if !ok {
		return s
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "{") {
		return rest
	}
	return s
}
