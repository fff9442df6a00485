package hcl

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// evalMap evaluates an optional object-valued attribute into a Go map.
// Absent attributes yield an empty map.
func evalMap(expr hcl.Expression, evalCtx *hcl.EvalContext, attr string) (map[string]any, error) {
	out := make(map[string]any)
	if expr == nil {
		return out, nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %s: %w", attr, diags)
	}
	if val.IsNull() {
		return out, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("%s must be an object, got %s", attr, val.Type().FriendlyName())
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", attr, err)
	}
	if m, ok := native.(map[string]any); ok {
		return m, nil
	}
	return out, nil
}

// ctyToNative converts a cty.Value into plain Go values: string, bool,
// int64 or float64 for numbers, []any and map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			slice = append(slice, native)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			m[key.AsString()] = native
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

// variablesContext exposes project variables to module expressions as var.<name>.
func variablesContext(vars map[string]any) (*hcl.EvalContext, error) {
	attrs := make(map[string]cty.Value, len(vars))
	for k, v := range vars {
		cv, err := nativeToCty(v)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", k, err)
		}
		attrs[k] = cv
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(attrs)},
	}, nil
}

// nativeToCty is the inverse of ctyToNative.
func nativeToCty(v any) (cty.Value, error) {
	switch tv := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case []any:
		if len(tv) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(tv))
		for i, e := range tv {
			cv, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(tv) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(tv))
		for k, e := range tv {
			cv, err := nativeToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
