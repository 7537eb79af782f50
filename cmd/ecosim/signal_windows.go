//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals routes Ctrl+C to ch so serve can shut down cleanly.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
