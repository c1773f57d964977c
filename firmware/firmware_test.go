package firmware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyntheticIsDeterministic(t *testing.T) {
	a := Synthetic(64, 1)
	require.Equal(t, a, Synthetic(64, 1))
	require.NotEqual(t, a, Synthetic(64, 2))
	require.Len(t, Synthetic(0, 1), 0)
}

func TestImagesPresent(t *testing.T) {
	fw, clm := Images()
	require.NotEmpty(t, fw)
	require.NotEmpty(t, clm)
}
