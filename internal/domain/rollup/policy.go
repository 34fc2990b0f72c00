package rollup

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"ledgertree/internal/core/apperror"
	"ledgertree/internal/core/types"
)

// NodeView is what an inclusion policy sees of a node after roll-up.
type NodeView struct {
	ID       string
	ParentID string
	Depth    int
	Leaf     bool
	NonZero  bool
	Total    types.Money
}

// InclusionPolicy decides whether a node whose cells are all zero still
// gets a row. Nodes with a non-zero cell always get one.
type InclusionPolicy interface {
	Include(v NodeView) (bool, error)
}

type nonZeroOnly struct{}

func (nonZeroOnly) Include(NodeView) (bool, error) { return false, nil }

// NonZeroOnly emits rows only for nodes with at least one non-zero cell.
func NonZeroOnly() InclusionPolicy {
	return nonZeroOnly{}
}

type allNodes struct{}

func (allNodes) Include(NodeView) (bool, error) { return true, nil }

// AllNodes emits a row for every node in scope.
func AllNodes() InclusionPolicy {
	return allNodes{}
}

type whitelist map[string]struct{}

func (w whitelist) Include(v NodeView) (bool, error) {
	_, ok := w[v.ID]
	return ok, nil
}

// Whitelist additionally emits zero rows for the listed nodes, e.g.
// ancestors needed for display context.
func Whitelist(ids ...string) InclusionPolicy {
	w := make(whitelist, len(ids))
	for _, id := range ids {
		w[id] = struct{}{}
	}
	return w
}

type anyOf []InclusionPolicy

func (a anyOf) Include(v NodeView) (bool, error) {
	for _, p := range a {
		ok, err := p.Include(v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AnyOf includes a node when any of the policies does.
func AnyOf(policies ...InclusionPolicy) InclusionPolicy {
	return anyOf(policies)
}

type expression struct {
	src string
	prg cel.Program
}

// Expression compiles a CEL boolean expression over the variables
// id, parent (string), depth (int), leaf, nonzero (bool) and total (double).
//
//	depth <= 1 || id.startsWith("Raw")
func Expression(src string) (InclusionPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("parent", cel.StringType),
		cel.Variable("depth", cel.IntType),
		cel.Variable("leaf", cel.BoolType),
		cel.Variable("nonzero", cel.BoolType),
		cel.Variable("total", cel.DoubleType),
	)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("cel env: %w", err))
	}

	ast, iss := env.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewInvalidPolicy(src, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewInvalidPolicy(src, fmt.Errorf("expression yields %s, want bool", ast.OutputType()))
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, apperror.NewInvalidPolicy(src, err)
	}
	return &expression{src: src, prg: prg}, nil
}

func (e *expression) Include(v NodeView) (bool, error) {
	out, _, err := e.prg.Eval(map[string]any{
		"id":      v.ID,
		"parent":  v.ParentID,
		"depth":   int64(v.Depth),
		"leaf":    v.Leaf,
		"nonzero": v.NonZero,
		"total":   types.ToFloat(v.Total),
	})
	if err != nil {
		return false, apperror.NewInvalidPolicy(e.src, err).WithDetail("node_id", v.ID)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, apperror.NewInvalidPolicy(e.src, fmt.Errorf("expression yields %T", out.Value()))
	}
	return b, nil
}
