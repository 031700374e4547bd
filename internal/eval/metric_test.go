package eval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExactMatchTrimsOnlySurroundingWhitespace(t *testing.T) {
	m := ExactMatch{}
	require.Equal(t, "exact_match", m.Name())

	require.True(t, m.Evaluate("  hello world  ", "hello world"))
	require.True(t, m.Evaluate("hello world", "\thello world\n"))
	require.False(t, m.Evaluate("hello  world", "hello world"), "internal whitespace is significant")
	require.False(t, m.Evaluate("Hello World", "hello world"), "case is significant")
}

func TestExactMatchStringifiesNonStrings(t *testing.T) {
	m := ExactMatch{}
	require.True(t, m.Evaluate(42, "42"))
	require.True(t, m.Evaluate(3.5, 3.5))
	require.False(t, m.Evaluate(42, 43))
}

func TestContainsIsCaseInsensitiveBothWays(t *testing.T) {
	m := Contains{}
	require.Equal(t, "contains", m.Name())

	require.True(t, m.Evaluate("The Lesson OBJECTIVES are clear", "objectives"))
	require.True(t, m.Evaluate("materials list", "MATERIALS"))
	require.False(t, m.Evaluate("short answer", "assessment"))
}

func TestCustomDelegatesAndReportsLabel(t *testing.T) {
	m := Custom{
		Label: "min_length",
		Func: func(output, expected any) bool {
			s, _ := output.(string)
			n, _ := expected.(int)
			return len(s) >= n
		},
	}

	require.Equal(t, "min_length", m.Name())
	require.True(t, m.Evaluate("long enough", 5))
	require.False(t, m.Evaluate("no", 5))
}
