// Package transform executes field transformations.
//
// A transformation is data: a runtime name and a code body. The only runtime
// is CEL, a side-effect free expression language, so execution is pure and
// deterministic for a given code, field and value.
package transform

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/OFFIS-RIT/parversion/pkg/common"
)

// RuntimeCEL is the runtime identifier for CEL expressions.
const RuntimeCEL = "cel"

// DefaultCostLimit bounds the evaluation cost of a single expression.
const DefaultCostLimit = 10_000

// ErrTransformation marks malformed code or a runtime fault. It is never used
// for elimination.
var ErrTransformation = errors.New("transformation failed")

// Result is the outcome of one execution. When Eliminated is set, Key and
// Value are empty.
type Result struct {
	Key        string
	Value      any
	Eliminated bool
}

// Runtime executes a transformation against one data node's fields.
// Compile rejects transformations Execute could never run.
type Runtime interface {
	Execute(t common.FieldTransformation, fields map[string]string) (Result, error)
	Compile(t common.FieldTransformation) error
}

// CELRuntime compiles each distinct code body once and caches the program.
// It is safe for concurrent use.
type CELRuntime struct {
	env       *cel.Env
	costLimit uint64

	mu       sync.RWMutex
	programs map[string]cel.Program
}

type CELRuntimeOption func(*CELRuntime)

func WithCostLimit(limit uint64) CELRuntimeOption {
	return func(r *CELRuntime) {
		r.costLimit = limit
	}
}

func NewCELRuntime(opts ...CELRuntimeOption) (*CELRuntime, error) {
	env, err := cel.NewEnv(
		cel.Variable("field", cel.StringType),
		cel.Variable("value", cel.StringType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cel environment: %w", err)
	}

	r := &CELRuntime{
		env:       env,
		costLimit: DefaultCostLimit,
		programs:  make(map[string]cel.Program),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Execute evaluates t against the field it names. A missing field or a null
// result eliminates the field.
func (r *CELRuntime) Execute(t common.FieldTransformation, fields map[string]string) (Result, error) {
	if t.Runtime != "" && t.Runtime != RuntimeCEL {
		return Result{}, fmt.Errorf("%w: unsupported runtime %q", ErrTransformation, t.Runtime)
	}

	value, ok := fields[t.Field]
	if !ok {
		return Result{Eliminated: true}, nil
	}

	prg, err := r.program(t.Code)
	if err != nil {
		return Result{}, err
	}

	out, _, err := prg.Eval(map[string]any{
		"field":  t.Field,
		"value":  value,
		"fields": fields,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrTransformation, t.ID, err)
	}

	v, null, err := native(out)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrTransformation, t.ID, err)
	}
	if null {
		return Result{Eliminated: true}, nil
	}
	return Result{Key: t.Key, Value: v}, nil
}

// Compile checks the runtime and the expression of t without running it.
// The compiled program is kept for later Execute calls.
func (r *CELRuntime) Compile(t common.FieldTransformation) error {
	if t.Runtime != "" && t.Runtime != RuntimeCEL {
		return fmt.Errorf("%w: unsupported runtime %q", ErrTransformation, t.Runtime)
	}
	_, err := r.program(t.Code)
	return err
}

func (r *CELRuntime) program(code string) (cel.Program, error) {
	code = strings.TrimSpace(code)

	r.mu.RLock()
	prg, ok := r.programs[code]
	r.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, iss := r.env.Compile(code)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: failed to compile %q: %w", ErrTransformation, code, iss.Err())
	}
	prg, err := r.env.Program(ast, cel.CostLimit(r.costLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to plan %q: %w", ErrTransformation, code, err)
	}

	r.mu.Lock()
	r.programs[code] = prg
	r.mu.Unlock()
	return prg, nil
}

func native(v ref.Val) (any, bool, error) {
	switch val := v.(type) {
	case types.Null:
		return nil, true, nil
	case types.String:
		return string(val), false, nil
	case types.Bool:
		return bool(val), false, nil
	case types.Int:
		return int64(val), false, nil
	case types.Uint:
		return uint64(val), false, nil
	case types.Double:
		return float64(val), false, nil
	}

	converted, err := v.ConvertToNative(reflect.TypeOf(&structpb.Value{}))
	if err != nil {
		return nil, false, fmt.Errorf("unsupported result type %s", v.Type().TypeName())
	}
	pb, ok := converted.(*structpb.Value)
	if !ok {
		return nil, false, fmt.Errorf("unsupported result type %s", v.Type().TypeName())
	}
	return pb.AsInterface(), false, nil
}
