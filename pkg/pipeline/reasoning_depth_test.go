package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveReasoningDepth(t *testing.T) {
	zero := 0
	three := 3
	negative := -1

	cases := []struct {
		name          string
		settingsDepth int
		override      *int
		want          int
	}{
		{"no override, positive setting", 2, nil, 2},
		{"no override, unset setting falls back to 1", 0, nil, 1},
		{"no override, negative setting falls back to 1", -4, nil, 1},
		{"explicit zero override is honored, not clamped to 1", 2, &zero, 0},
		{"explicit positive override wins over setting", 1, &three, 3},
		{"explicit negative override floors at zero", 2, &negative, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolveReasoningDepth(tc.settingsDepth, tc.override))
		})
	}
}
