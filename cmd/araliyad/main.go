package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"goa.design/clue/log"

	"github.com/xcorat/araliya/internal/component"
	"github.com/xcorat/araliya/internal/supervisor"
	"github.com/xcorat/araliya/internal/telemetry"
)

func main() {
	var (
		configF   = flag.String("config", "config.toml", "path to the TOML configuration file")
		httpPortF = flag.String("http-port", "8080", "HTTP API listen port")
		dbgF      = flag.Bool("debug", false, "enable debug-level logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	logger := telemetry.NewClueLogger()

	sup, err := supervisor.Bootstrap(supervisor.Options{
		ConfigPath: *configF,
		Logger:     logger,
	})
	if err != nil {
		log.Fatal(ctx, fmt.Errorf("bootstrap: %w", err))
	}
	log.Print(ctx, log.KV{K: "bot_id", V: sup.Identity.PublicID()})

	errc := make(chan error, 2)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handle := component.SpawnComponents(ctx, sup.Components(), logger)

	httpServer := &http.Server{Addr: ":" + *httpPortF, Handler: sup.HTTP}
	go func() {
		log.Print(ctx, log.KV{K: "http_addr", V: httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		errc <- handle.Wait()
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)

	cancel()
	_ = httpServer.Shutdown(context.Background())
	_ = handle.Wait()
	_ = sup.Memory.Close()

	log.Printf(ctx, "exited")
}
