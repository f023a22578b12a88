package main

import (
	"os"

	"github.com/HammerMeetNail/campusconnect/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Default.WithError(err).Error("Application error")
		os.Exit(1)
	}
}
