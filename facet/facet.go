// Package facet implements the FacetFilter expression AST and its
// evaluation against a query.Context snapshot, plus the read-side
// facet-distribution companion, per spec.md §4.7.
package facet

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/kestrelsearch/kestrel/errors"
	"github.com/kestrelsearch/kestrel/query"
)

// Value is a JSON-ish filter literal: exactly one of the fields is set.
type Value struct {
	Str    *string
	Num    *float64
	Bool   *bool
	IsNull bool
}

func Str(s string) Value  { return Value{Str: &s} }
func Num(n float64) Value { return Value{Num: &n} }
func Bool(b bool) Value   { return Value{Bool: &b} }
func Null() Value         { return Value{IsNull: true} }

// Expr is the FacetFilter expression AST (spec.md §4.7).
type Expr interface{ isExpr() }

type And struct{ Exprs []Expr }
type Or struct{ Exprs []Expr }
type Not struct{ Expr Expr }
type Field struct {
	Path string
	Expr Expr
}
type In struct{ Values []Value }
type Exists struct{}
type IsEmpty struct{}
type Eq struct{ Value Value }
type Ne struct{ Value Value }
type Gt struct{ Value float64 }
type Gte struct{ Value float64 }
type Lt struct{ Value float64 }
type Lte struct{ Value float64 }
type Between struct{ From, To float64 }

func (And) isExpr()     {}
func (Or) isExpr()      {}
func (Not) isExpr()     {}
func (Field) isExpr()   {}
func (In) isExpr()      {}
func (Exists) isExpr()  {}
func (IsEmpty) isExpr() {}
func (Eq) isExpr()      {}
func (Ne) isExpr()      {}
func (Gt) isExpr()      {}
func (Gte) isExpr()     {}
func (Lt) isExpr()      {}
func (Lte) isExpr()     {}
func (Between) isExpr() {}

// FieldResolver maps a normalized field path to its id and whether it
// is declared filterable, so Eval can enforce spec.md §7's
// non-filterable-field UserError.
type FieldResolver interface {
	ResolveField(path string) (fid uint16, filterable bool, ok bool)
}

// Eval evaluates expr against ctx's snapshot, scoped to the top-level
// field prefix (empty for the root call); it returns the matching
// document bitmap.
func Eval(ctx query.Context, resolver FieldResolver, expr Expr) (*roaring.Bitmap, error) {
	return evalWithField(ctx, resolver, expr, "")
}

func evalWithField(ctx query.Context, resolver FieldResolver, expr Expr, fieldPath string) (*roaring.Bitmap, error) {
	switch e := expr.(type) {
	case And:
		universe, err := ctx.Universe()
		if err != nil {
			return nil, err
		}
		acc := universe
		for _, sub := range e.Exprs {
			bits, err := evalWithField(ctx, resolver, sub, fieldPath)
			if err != nil {
				return nil, err
			}
			acc.And(bits)
		}
		return acc, nil

	case Or:
		acc := roaring.New()
		for _, sub := range e.Exprs {
			bits, err := evalWithField(ctx, resolver, sub, fieldPath)
			if err != nil {
				return nil, err
			}
			acc.Or(bits)
		}
		return acc, nil

	case Not:
		universe, err := ctx.Universe()
		if err != nil {
			return nil, err
		}
		inner, err := evalWithField(ctx, resolver, e.Expr, fieldPath)
		if err != nil {
			return nil, err
		}
		universe.AndNot(inner)
		return universe, nil

	case Field:
		return evalWithField(ctx, resolver, e.Expr, joinPath(fieldPath, e.Path))

	case In:
		acc := roaring.New()
		for _, v := range e.Values {
			bits, err := evalLeaf(ctx, resolver, fieldPath, Eq{Value: v})
			if err != nil {
				return nil, err
			}
			acc.Or(bits)
		}
		return acc, nil

	default:
		return evalLeaf(ctx, resolver, fieldPath, expr)
	}
}

func joinPath(prefix, component string) string {
	if prefix == "" {
		return component
	}
	return prefix + "." + component
}

// evalLeaf handles the leaf operators that require a resolved,
// filterable field: Exists/IsEmpty/Eq/Ne/Gt/Gte/Lt/Lte/Between.
func evalLeaf(ctx query.Context, resolver FieldResolver, fieldPath string, expr Expr) (*roaring.Bitmap, error) {
	fid, filterable, ok := resolver.ResolveField(fieldPath)
	if !ok || !filterable {
		var validNames []string
		if lister, isLister := resolver.(interface{ FilterableFieldNames() []string }); isLister {
			validNames = lister.FilterableFieldNames()
		}
		return nil, errors.NewUserError("non_filterable_field", fieldPath,
			"Attribute `"+fieldPath+"` is not filterable", validNames)
	}

	switch e := expr.(type) {
	case Exists:
		return ctx.ExistsDocids(fid)

	case IsEmpty:
		return ctx.IsEmptyDocids(fid)

	case Eq:
		if e.Value.IsNull {
			return ctx.IsNullDocids(fid)
		}
		if e.Value.Num != nil {
			return evalNumericCompare(ctx, fid, func(bound float64) bool { return bound == *e.Value.Num })
		}
		return evalStringEq(ctx, fid, e.Value)

	case Ne:
		universe, err := ctx.Universe()
		if err != nil {
			return nil, err
		}
		eqBits, err := evalLeaf(ctx, resolver, fieldPath, Eq{Value: e.Value})
		if err != nil {
			return nil, err
		}
		universe.AndNot(eqBits)
		return universe, nil

	case Gt:
		return evalNumericCompare(ctx, fid, func(bound float64) bool { return bound > e.Value })
	case Gte:
		return evalNumericCompare(ctx, fid, func(bound float64) bool { return bound >= e.Value })
	case Lt:
		return evalNumericCompare(ctx, fid, func(bound float64) bool { return bound < e.Value })
	case Lte:
		return evalNumericCompare(ctx, fid, func(bound float64) bool { return bound <= e.Value })
	case Between:
		return evalNumericCompare(ctx, fid, func(bound float64) bool { return bound >= e.Between0() && bound <= e.Between1() })
	}
	return roaring.New(), nil
}

func (b Between) Between0() float64 { return b.From }
func (b Between) Between1() float64 { return b.To }

// evalNumericCompare descends the hierarchical numeric facet DB,
// unioning every level-0 leaf bitmap whose left bound satisfies pred —
// spec.md's "binary descent through levels" collapsed to a linear scan
// over levels, since query.Context exposes them pre-flattened rather
// than as a literal tree (§4.5/§9 leaves the index layout to the
// implementation; only O(log N) descent through a tree achieves the
// asymptotic, a simplification noted in DESIGN.md).
func evalNumericCompare(ctx query.Context, fid uint16, pred func(bound float64) bool) (*roaring.Bitmap, error) {
	levels, err := ctx.FacetNumericLevels(fid)
	if err != nil {
		return nil, err
	}
	out := roaring.New()
	for _, level := range levels {
		if pred(level.LeftBound) {
			out.Or(level.Bitmap)
		}
	}
	return out, nil
}

// evalStringEq normalizes value (lowercase, NFKD-fold) before the
// level-0 string lookup, per spec.md §4.7.
func evalStringEq(ctx query.Context, fid uint16, v Value) (*roaring.Bitmap, error) {
	var raw string
	switch {
	case v.Str != nil:
		raw = *v.Str
	case v.Bool != nil:
		if *v.Bool {
			raw = "true"
		} else {
			raw = "false"
		}
	}
	return ctx.FacetStringDocids(fid, NormalizeFacetValue(raw))
}

// NormalizeFacetValue lowercases and NFKD-folds s, the normalization
// every string facet comparison applies before lookup.
func NormalizeFacetValue(s string) string {
	return norm.NFKD.String(strings.ToLower(s))
}
