// Package main is the entry point for webauth-login.
package main

import (
	"os"
	"runtime"

	"github.com/naotama2002/webauth-go/cmd/webauth-login/app"
	"github.com/naotama2002/webauth-go/internal/logger"
)

func init() {
	// The main loop runs on the main goroutine; keep it on the main thread.
	runtime.LockOSThread()
}

func main() {
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(app.ExitCode(err))
	}
}
