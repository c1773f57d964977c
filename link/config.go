package link

import (
	"time"

	"picow-go/x/mathx"
)

// Config holds the link driver's timing and sizing.
type Config struct {
	PowerOffDelay    time.Duration // power pin held low before power-up
	PowerOnDelay     time.Duration // settle time after power-up
	HandshakeTimeout time.Duration // bound on the hello acknowledgment
	CommandTimeout   time.Duration // bound on each command response
	PollInterval     time.Duration // event poll period while idle
	QueueSize        int           // pending commands
	ChunkSize        int           // image bytes per upload frame
}

func DefaultConfig() Config {
	return Config{
		PowerOffDelay:    20 * time.Millisecond,
		PowerOnDelay:     250 * time.Millisecond,
		HandshakeTimeout: time.Second,
		CommandTimeout:   100 * time.Millisecond,
		PollInterval:     10 * time.Millisecond,
		QueueSize:        4,
		ChunkSize:        64,
	}
}

// Sanitize fills zero fields with defaults and clamps the rest.
func (c Config) Sanitize() Config {
	d := DefaultConfig()
	c.PowerOffDelay = mathx.ClampDuration(c.PowerOffDelay, d.PowerOffDelay, time.Millisecond, time.Second)
	c.PowerOnDelay = mathx.ClampDuration(c.PowerOnDelay, d.PowerOnDelay, time.Millisecond, 5*time.Second)
	c.HandshakeTimeout = mathx.ClampDuration(c.HandshakeTimeout, d.HandshakeTimeout, time.Millisecond, time.Minute)
	c.CommandTimeout = mathx.ClampDuration(c.CommandTimeout, d.CommandTimeout, time.Millisecond, 10*time.Second)
	c.PollInterval = mathx.ClampDuration(c.PollInterval, d.PollInterval, time.Millisecond, time.Second)
	c.QueueSize = mathx.Clamp(mathx.OrDefault(c.QueueSize, d.QueueSize), 1, 64)
	c.ChunkSize = mathx.Clamp(mathx.OrDefault(c.ChunkSize, d.ChunkSize), 4, MaxPayload)
	return c
}
