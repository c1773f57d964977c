// Package config holds the firmware's operating parameters. Defaults are
// compiled in; the board comes from the build tags (see platform/boards).
package config

import (
	"go.uber.org/multierr"

	"picow-go/app"
	"picow-go/diag"
	"picow-go/errcode"
	"picow-go/link"
	"picow-go/platform/boards"
)

type Config struct {
	Board boards.Board
	Link  link.Config
	Diag  diag.Config
	App   app.Config
}

// Default is the configuration flashed onto the board.
func Default() Config {
	return forBoard(boards.Selected)
}

func forBoard(b boards.Board) Config {
	c := Config{
		Board: b,
		Link:  link.DefaultConfig(),
		Diag:  diag.DefaultConfig(),
		App:   app.DefaultConfig(),
	}
	c.App.Pin = b.LED
	return c
}

// ForBoard is Default with the named board.
func ForBoard(name string) (Config, error) {
	b, ok := boards.ByName(name)
	if !ok {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config.board", Msg: name}
	}
	return forBoard(b), nil
}

// Sanitize clamps every section into its workable range.
func (c Config) Sanitize() Config {
	c.Link = c.Link.Sanitize()
	c.Diag = c.Diag.Sanitize()
	c.App = c.App.Sanitize()
	return c
}

// Validate reports configuration errors that Sanitize cannot repair.
func (c Config) Validate() error {
	var errs error
	if c.Board.Name == "" {
		errs = multierr.Append(errs, invalid("board name"))
	}
	p := c.Board.Plan
	if p.PIO == "" {
		errs = multierr.Append(errs, invalid("pio block"))
	}
	if p.Diag == "" {
		errs = multierr.Append(errs, invalid("diag port"))
	}
	if c.App.Pin < 0 || c.App.Pin >= link.MaxGPIO {
		errs = multierr.Append(errs, invalid("app pin"))
	}
	return errs
}

func invalid(msg string) error {
	return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: msg}
}
