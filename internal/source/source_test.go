package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionString(t *testing.T) {
	p := Position{File: "a.c", Line: 3, Column: 7}
	assert.Equal(t, "a.c:3:7", p.String())
	noFile := Position{Line: 1, Column: 1}
	assert.Equal(t, "1:1", noFile.String())
}

func TestCollectorAccumulatesInOrder(t *testing.T) {
	var c Collector
	c.Errorf(Position{Line: 1}, Syntactic, "bad token %q", "+")
	c.Warnf(Position{Line: 2}, TypeMismatch, "implicit conversion")
	require.True(t, c.HasErrors(), "HasErrors should be true after recording an Error-severity diagnostic")
	diags := c.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, Syntactic, diags[0].Kind)
	assert.Equal(t, Error, diags[0].Severity)
	assert.Equal(t, TypeMismatch, diags[1].Kind)
	assert.Equal(t, Warning, diags[1].Severity)
}

func TestHasErrorsFalseForWarningsOnly(t *testing.T) {
	var c Collector
	c.Warnf(Position{}, TypeMismatch, "just a warning")
	assert.False(t, c.HasErrors(), "a collector with only warnings should report HasErrors() == false")
}

func TestMergePreservesOrder(t *testing.T) {
	var a, b Collector
	a.Errorf(Position{Line: 1}, Lexical, "a1")
	b.Errorf(Position{Line: 2}, Syntactic, "b1")
	b.Errorf(Position{Line: 3}, Syntactic, "b2")
	a.Merge(&b)
	diags := a.Diagnostics()
	require.Len(t, diags, 3)
	assert.Equal(t, "a1", diags[0].Message)
	assert.Equal(t, "b1", diags[1].Message)
	assert.Equal(t, "b2", diags[2].Message)
}

func TestInternalfPanics(t *testing.T) {
	var c Collector
	require.Panics(t, func() {
		c.Internalf(Position{}, "invariant violated: %s", "x")
	}, "Internalf should panic so the driver can treat it as a fatal compile error")
}
