//go:build board_pico_w_uart

package boards

// Selected is the board chosen at build time.
var Selected = PicoWUART
