package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/publishq/publishqd/internal/app"
	"github.com/publishq/publishqd/internal/config"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if cfgPath != "" {
		unwatch, err := config.Watch(cfgPath, func(next *config.Config, err error) {
			if err != nil {
				slog.Error("config reload failed", "error", err)
				return
			}
			a.Reload(next)
		})
		if err != nil {
			slog.Warn("config watch unavailable", "error", err)
		} else {
			defer unwatch()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Println("fatal:", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.Shutdown(shutdownCtx); err != nil {
		fmt.Println("shutdown:", err)
		os.Exit(1)
	}
}
