package aitools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/skchakri/medi-vault/pkg/credential"
)

// Operation is one permitted repository call the invoker can dispatch to.
type Operation func(ctx context.Context, args map[string]any) (any, error)

// MethodInvokerTool maps a {target, operation} pair to a closed set of named
// operations. There is no reflection: an operation not registered at
// construction time cannot be called.
type MethodInvokerTool struct {
	operations map[string]Operation
}

// NewMethodInvokerTool builds the invoker with the standard operation set
// over the credential store.
func NewMethodInvokerTool(credentials credential.Store) *MethodInvokerTool {
	t := &MethodInvokerTool{operations: map[string]Operation{}}

	t.register("credential", "find", func(ctx context.Context, args map[string]any) (any, error) {
		var params struct {
			ID int64 `json:"id"`
		}
		if err := decodeArgs(args, &params); err != nil {
			return nil, err
		}
		if params.ID == 0 {
			return nil, fmt.Errorf("id is required")
		}
		return credentials.Get(ctx, params.ID)
	})

	t.register("credential", "list_expiring", func(ctx context.Context, args map[string]any) (any, error) {
		return credentials.ListExpiringSoon(ctx, time.Now())
	})

	return t
}

func (t *MethodInvokerTool) register(target, operation string, fn Operation) {
	t.operations[target+"."+operation] = fn
}

func (t *MethodInvokerTool) GetInfo() Spec {
	return mustSpec("method_invoker")
}

// Operations returns the permitted "target.operation" names in lexical
// order.
func (t *MethodInvokerTool) Operations() []string {
	names := make([]string, 0, len(t.operations))
	for name := range t.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type methodInvokerArgs struct {
	Target    string         `json:"target"`
	Operation string         `json:"operation"`
	ArgsHash  map[string]any `json:"args_hash"`
}

func (t *MethodInvokerTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	var params methodInvokerArgs
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	fn, ok := t.operations[params.Target+"."+params.Operation]
	if !ok {
		return nil, fmt.Errorf("operation not allowed: %s.%s", params.Target, params.Operation)
	}

	result, err := fn(ctx, params.ArgsHash)
	if err != nil {
		return nil, err
	}
	return map[string]any{"return_value": result}, nil
}
