package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/LeeDigitalWorks/zapup/cmd"

	"github.com/getsentry/sentry-go"
)

func main() {
	// DSN, environment and release come from SENTRY_* env vars; without a
	// DSN the client is a no-op.
	err := sentry.Init(sentry.ClientOptions{
		SampleRate:       0.1,
		EnableTracing:    true,
		TracesSampleRate: 0.1,
		Release:          "zapup@" + cmd.Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sentry.Init: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	flag.Parse()

	cmd.Execute()
}
