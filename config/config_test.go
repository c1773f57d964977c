package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"picow-go/errcode"
	"picow-go/link"
	"picow-go/platform/boards"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, c, c.Sanitize())
	require.Equal(t, time.Second, c.App.Period)
	require.Equal(t, link.PowerSave, c.App.Mode)
}

func TestForBoard(t *testing.T) {
	c, err := ForBoard("pico_w_uart")
	require.NoError(t, err)
	require.Equal(t, "uart0", c.Board.Plan.Diag)

	require.Equal(t, c.Board.LED, c.App.Pin)

	_, err = ForBoard("nope")
	require.True(t, errcode.Is(err, errcode.InvalidParams))
}

func TestBoardLEDSelectsAppPin(t *testing.T) {
	b := boards.PicoW
	b.LED = 2
	c := forBoard(b)
	require.Equal(t, 2, c.App.Pin)
	require.NoError(t, c.Validate())
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	c := Default()
	c.Board.Name = ""
	c.Board.Plan.PIO = ""
	c.App.Pin = 7
	errs := multierr.Errors(c.Validate())
	require.Len(t, errs, 3)
	for _, err := range errs {
		require.True(t, errcode.Is(err, errcode.InvalidParams))
	}
}
