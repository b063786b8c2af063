package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"schedd/internal/app"
	"schedd/internal/sched"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	// Run until a signal arrives or a supervised component fails fatally.
	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	stop()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// A second signal abandons the graceful drain and drops pending jobs.
	force := make(chan os.Signal, 1)
	signal.Notify(force, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-force
		a.ForceImmediate()
	}()

	shutCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = a.Stop(shutCtx, sched.ShutdownGraceful)
	if ferr := a.Err(); ferr != nil {
		fmt.Fprintln(os.Stderr, "fatal:", ferr)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "shutdown:", err)
		os.Exit(1)
	}
}
