package generic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapKeys(t *testing.T) {
	m1 := map[string]int{"a": 1, "b": 2}
	m2 := map[string]int{"b": 3, "c": 4}

	keys := MapKeys(m1, m2)
	SortSlice(keys, false)

	require.Equal(t, []string{"a", "b", "c"}, keys)
}
