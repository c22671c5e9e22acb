package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pythonSource = `# header comment
import os


class Greeter:
    """Greets people."""

    def greet(self, name, punctuation):
        if name and punctuation:
            return name + punctuation
        return name


def main():
    for x in range(3):
        print(x)
`

const goSource = `package sample

// Shape is a shape.
type Shape interface {
	Area() float64
}

type Square struct {
	side float64
}

/*
Area returns the area.
*/
func (s *Square) Area() float64 {
	if s.side < 0 || s.side > 100 {
		return 0
	}
	return s.side * s.side
}

func Sum(values ...int) int {
	total := 0
	for _, v := range values {
		switch {
		case v > 0:
			total += v
		default:
		}
	}
	return total
}
`

const jsSource = `// utilities
export function add(a, b) {
  return a + b;
}

const isPositive = (n) => {
  if (n > 0 && n < 10) {
    return true;
  }
  return false;
};

class Counter {
  increment(step) {
    this.value += step;
  }
}
`

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func functionByName(t *testing.T, metrics *model.CodeMetrics, name string) model.FunctionMetrics {
	t.Helper()
	for _, f := range metrics.Functions {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("function %s not found in %+v", name, metrics.Functions)
	return model.FunctionMetrics{}
}

func Test_Builtin_Python(t *testing.T) {
	path := writeSource(t, "greeter.py", pythonSource)

	metrics, err := NewBuiltin().Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 16, metrics.TotalLines)
	assert.Equal(t, 9, metrics.CodeLines)
	assert.Equal(t, 2, metrics.CommentLines)
	assert.Equal(t, 5, metrics.BlankLines)
	assert.Equal(t, 1, metrics.ClassCount)
	require.Equal(t, 2, metrics.FunctionCount)

	greet := functionByName(t, metrics, "greet")
	assert.Equal(t, 2, greet.Parameters, "self is not a parameter")
	assert.Equal(t, 3, greet.Complexity)
	assert.Equal(t, 8, greet.StartLine)
	assert.Equal(t, 11, greet.EndLine)

	main := functionByName(t, metrics, "main")
	assert.Equal(t, 0, main.Parameters)
	assert.Equal(t, 2, main.Complexity)

	assert.InDelta(t, 2.5, metrics.AverageComplexity, 1e-9)
	assert.Equal(t, 3, metrics.MaxComplexity)
	assert.InDelta(t, 1.0, metrics.AverageParameters, 1e-9)
}

func Test_Builtin_Go(t *testing.T) {
	path := writeSource(t, "sample.go", goSource)

	metrics, err := NewBuiltin().Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 32, metrics.TotalLines)
	assert.Equal(t, 4, metrics.BlankLines)
	assert.Equal(t, 4, metrics.CommentLines)
	assert.Equal(t, 24, metrics.CodeLines)
	assert.Equal(t, 2, metrics.ClassCount)
	require.Equal(t, 2, metrics.FunctionCount)

	area := functionByName(t, metrics, "Square.Area")
	assert.Equal(t, 3, area.Complexity)
	assert.Equal(t, 0, area.Parameters)
	assert.Equal(t, 15, area.StartLine)
	assert.Equal(t, 6, area.LineCount)

	sum := functionByName(t, metrics, "Sum")
	assert.Equal(t, 3, sum.Complexity)
	assert.Equal(t, 1, sum.Parameters)

	assert.Equal(t, 3, metrics.MaxComplexity)
	assert.InDelta(t, 3.0, metrics.AverageComplexity, 1e-9)
}

func Test_Builtin_GoSyntaxError(t *testing.T) {
	path := writeSource(t, "broken.go", "package broken\n\nfunc {\n")

	_, err := NewBuiltin().Analyze(context.Background(), path)
	assert.Error(t, err)
}

func Test_Builtin_JavaScript(t *testing.T) {
	path := writeSource(t, "util.js", jsSource)

	metrics, err := NewBuiltin().Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 17, metrics.TotalLines)
	assert.Equal(t, 1, metrics.CommentLines)
	assert.Equal(t, 2, metrics.BlankLines)
	assert.Equal(t, 14, metrics.CodeLines)
	assert.Equal(t, 1, metrics.ClassCount)
	require.Equal(t, 3, metrics.FunctionCount)

	add := functionByName(t, metrics, "add")
	assert.Equal(t, 2, add.Parameters)
	assert.Equal(t, 1, add.Complexity)
	assert.Equal(t, 4, add.EndLine)

	isPositive := functionByName(t, metrics, "isPositive")
	assert.Equal(t, 1, isPositive.Parameters)
	assert.Equal(t, 3, isPositive.Complexity)
	assert.Equal(t, 6, isPositive.StartLine)
	assert.Equal(t, 11, isPositive.EndLine)

	increment := functionByName(t, metrics, "increment")
	assert.Equal(t, 1, increment.Parameters)
	assert.Equal(t, 14, increment.StartLine)
	assert.Equal(t, 16, increment.EndLine)
}

func Test_Builtin_BinaryContent(t *testing.T) {
	path := writeSource(t, "data.py", "abc\x00def")

	_, err := NewBuiltin().Analyze(context.Background(), path)
	assert.ErrorIs(t, err, ErrBinaryFile)
}

func Test_Builtin_EmptyFile(t *testing.T) {
	path := writeSource(t, "empty.rs", "")

	metrics, err := NewBuiltin().Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, metrics.TotalLines)
	assert.Zero(t, metrics.FunctionCount)
	assert.Zero(t, metrics.AverageComplexity)
}

func Test_Builtin_MissingFile(t *testing.T) {
	_, err := NewBuiltin().Analyze(context.Background(), filepath.Join(t.TempDir(), "gone.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Builtin_CancelledContext(t *testing.T) {
	path := writeSource(t, "a.py", "x = 1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuiltin().Analyze(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Builtin_Rust(t *testing.T) {
	src := "pub struct Point { x: i32 }\n\nimpl Point {\n    pub fn shift(&mut self, dx: i32, dy: i32) -> i32 {\n        if dx > 0 { dx } else { dy }\n    }\n}\n"
	path := writeSource(t, "point.rs", src)

	metrics, err := NewBuiltin().Analyze(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.ClassCount)
	require.Equal(t, 1, metrics.FunctionCount)
	shift := metrics.Functions[0]
	assert.Equal(t, "shift", shift.Name)
	assert.Equal(t, 2, shift.Parameters)
	assert.Equal(t, 2, shift.Complexity)
	assert.Equal(t, 6, shift.EndLine)
}
