// Package operation holds the parameter schema shared by metrics and
// transformations, and the typed accessors used to bind parsed keyword
// arguments onto their option structs.
package operation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "go-image-assessor/internal/errors"
)

// Kind tells metrics and transformations apart in listings
type Kind string

const (
	KindMetric         Kind = "metric"
	KindTransformation Kind = "transformation"
)

// ParamType names the accepted literal type of a parameter
type ParamType string

const (
	TypeInt     ParamType = "int"
	TypeFloat   ParamType = "float"
	TypeBool    ParamType = "bool"
	TypeString  ParamType = "string"
	TypeIntPair ParamType = "int_pair"
)

// Param documents one constructor parameter
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Default     any       `json:"default"`
	Constraint  string    `json:"constraint,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Info is the listing entry for a registered operation
type Info struct {
	Name        string  `json:"name"`
	Kind        Kind    `json:"kind"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Args are keyword arguments after literal inference. A nil value means None.
type Args map[string]any

// CheckKnown rejects keys that no parameter declares
func (a Args) CheckKnown(op string, params []Param) error {
	known := make(map[string]struct{}, len(params))
	for _, p := range params {
		known[p.Name] = struct{}{}
	}
	var unknown []string
	for k := range a {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return apperrors.NewConfigurationError(
		fmt.Sprintf("%s got unexpected arguments: %s", op, strings.Join(unknown, ", ")), nil)
}

// Float reads a numeric argument; ints are widened, None keeps the default
func (a Args) Float(name string, def float64) (float64, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case bool:
		// literal inference keeps True as a bool, numeric params accept it like 1
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, typeError(name, "a number", v)
}

// Int reads an integer argument. Floats with no fractional part are accepted.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), nil
		}
	}
	return 0, typeError(name, "an integer", v)
}

func (a Args) Bool(name string, def bool) (bool, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case int:
		return b != 0, nil
	}
	return false, typeError(name, "a boolean", v)
}

func (a Args) String(name string, def string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", typeError(name, "a string", v)
}

// IntPair reads a two element tuple such as (5, 5). A single int is used for both.
func (a Args) IntPair(name string, def [2]int) ([2]int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	switch p := v.(type) {
	case int:
		return [2]int{p, p}, nil
	case []any:
		if len(p) != 2 {
			break
		}
		var out [2]int
		for i, e := range p {
			n, ok := e.(int)
			if !ok {
				return def, typeError(name, "a pair of integers", v)
			}
			out[i] = n
		}
		return out, nil
	}
	return def, typeError(name, "a pair of integers", v)
}

func typeError(name, want string, got any) error {
	return apperrors.NewConfigurationError(
		fmt.Sprintf("argument %s must be %s, got %v (%T)", name, want, got, got), nil)
}
