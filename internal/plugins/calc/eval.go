package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// maxSteps bounds the work of a single evaluation.
const maxSteps = 10_000

var (
	errEmpty      = errors.New("empty expression")
	errCharacters = errors.New("expression may only contain digits and + - * / . ( )")

	leadingZeros = regexp.MustCompile(`(^|[^\d.])0+(\d)`)
)

// Evaluate computes an arithmetic expression in a sandboxed Starlark thread
// with no predeclared names. "/" is true division.
func Evaluate(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", errEmpty
	}
	if strings.Trim(expr, "0123456789+-*/.() ") != "" {
		return "", errCharacters
	}
	expr = leadingZeros.ReplaceAllString(expr, "${1}${2}")

	thread := &starlark.Thread{Name: "calc"}
	thread.SetMaxExecutionSteps(maxSteps)
	v, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "calc", expr, nil)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate %q: %w", expr, err)
	}

	switch n := v.(type) {
	case starlark.Int:
		return n.String(), nil
	case starlark.Float:
		f := float64(n)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", fmt.Errorf("result of %q is not finite", expr)
		}
		return strconv.FormatFloat(f, 'g', 12, 64), nil
	default:
		return "", fmt.Errorf("result of %q is a %s, not a number", expr, v.Type())
	}
}
