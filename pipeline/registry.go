package pipeline

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jonwraymond/toolproxy/auth"
	"github.com/jonwraymond/toolproxy/invocation"
)

// Registry errors.
var (
	ErrUnknownOperation   = errors.New("pipeline: unknown operation")
	ErrDuplicateOperation = errors.New("pipeline: operation already registered")
)

type pipelineKey struct {
	op   invocation.OperationType
	role string
}

// Registry owns one Pipeline per (operation type, role) pair.
//
// Pipelines are built on first request from a shared template and never
// share state with each other.
type Registry struct {
	template Config

	mu        sync.Mutex
	ops       map[invocation.OperationType]invocation.Operation
	pipelines map[pipelineKey]*Pipeline
	order     []pipelineKey
}

// NewRegistry creates a Registry. Operation and Role of template are
// ignored; the other fields configure every pipeline.
func NewRegistry(template Config, ops ...invocation.Operation) (*Registry, error) {
	if template.Roles != nil {
		if err := template.Roles.Validate(); err != nil {
			return nil, err
		}
	}
	// Build the middleware once so every pipeline reports through the same instruments.
	if template.Middleware == nil && template.Observer != nil {
		if err := template.applyDefaults(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
	}

	r := &Registry{
		template:  template,
		ops:       make(map[invocation.OperationType]invocation.Operation),
		pipelines: make(map[pipelineKey]*Pipeline),
	}
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds an operation.
func (r *Registry) Register(op invocation.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[op.Type]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, op.Type)
	}
	r.ops[op.Type] = op
	return nil
}

// Operations returns the registered operation types in sorted order.
func (r *Registry) Operations() []invocation.OperationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.ops))
}

// Get returns the pipeline for (op, role), building it on first request.
// Role names differing only in case share a pipeline.
func (r *Registry) Get(ctx context.Context, op invocation.OperationType, role string) (*Pipeline, error) {
	role = auth.NormalizeRole(role)

	r.mu.Lock()
	defer r.mu.Unlock()

	key := pipelineKey{op: op, role: role}
	if p, ok := r.pipelines[key]; ok {
		return p, nil
	}

	operation, ok := r.ops[op]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}

	cfg := r.template
	cfg.Operation = operation
	cfg.Role = role
	p, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.pipelines[key] = p
	r.order = append(r.order, key)
	return p, nil
}

// Invoke calls op as the role of the identity in ctx.
// It fails with auth.ErrMissingRole when ctx carries no role.
func (r *Registry) Invoke(ctx context.Context, op invocation.OperationType, args invocation.Args) (invocation.Result, error) {
	role := auth.RoleFromContext(ctx)
	if role == "" {
		return invocation.Result{}, auth.ErrMissingRole
	}
	p, err := r.Get(ctx, op, role)
	if err != nil {
		return invocation.Result{}, err
	}
	return p.Invoke(ctx, args)
}

// Pipelines returns every built pipeline in creation order.
func (r *Registry) Pipelines() []*Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Pipeline, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.pipelines[key])
	}
	return out
}
