package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"hapticd/internal/config"
	"hapticd/internal/console"
	"hapticd/internal/web"
)

func main() {
	var configPath string
	var withConsole bool
	flag.StringVar(&configPath, "config", "./hapticd.yaml", "Path to YAML config")
	flag.BoolVar(&withConsole, "console", false, "Start the interactive tuning console")
	flag.Parse()

	logs := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logs))

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("hapticd starting")
	rt := newRuntime(cfg, logs)
	if err := rt.Start(ctx); err != nil {
		log.Printf("haptic: %v (serving without a device)", err)
	}

	if withConsole && rt.Device() != nil {
		c := console.New(rt.Registry(), rt.Device().Name())
		go func() {
			c.Run()
			cancel()
		}()
		defer c.Close()
	}

	<-ctx.Done()
	log.Printf("hapticd stopping")
	rt.Close()
}
