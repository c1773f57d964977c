package main

import (
	"time"

	"picow-go/boot"
	"picow-go/config"
	"picow-go/platform"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	boot.Main(config.Default(), platform.Default())
}
