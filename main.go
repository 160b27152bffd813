package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raysh454/headprobe/internal/app"
	"github.com/raysh454/headprobe/internal/cli"
	"github.com/raysh454/headprobe/internal/demoserver"
	"github.com/raysh454/headprobe/internal/logging"
	"github.com/raysh454/headprobe/internal/server"
	"github.com/raysh454/headprobe/internal/urlnet"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "headprobe: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}

	cfg := app.DefaultConfig()
	if args.ConfigPath != "" {
		if cfg, err = app.LoadConfig(args.ConfigPath); err != nil {
			return err
		}
	}
	if args.DBPath != "" {
		cfg.StoragePath = args.DBPath
	}
	if args.LogLevel != "" {
		cfg.LogLevel = args.LogLevel
	}
	if args.Serve != "" {
		cfg.ListenAddr = args.Serve
	}

	a, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args.Demo != "" {
		cfg := a.Config.Demo
		cfg.Addr = args.Demo
		return demoserver.NewDemoServer(cfg,
			a.Logger.With(logging.Field{Key: "component", Value: "demoserver"})).Start(ctx)
	}
	if args.Serve != "" {
		return serve(ctx, a)
	}
	return probe(ctx, a, args)
}

func probe(ctx context.Context, a *app.Application, args *cli.CLIArgs) (err error) {
	listener := urlnet.ListenerFunc(func(done bool, processed, total int64) error {
		a.Logger.Debug("probe progress",
			logging.Field{Key: "done", Value: done},
			logging.Field{Key: "bytes", Value: processed},
			logging.Field{Key: "total", Value: total})
		return nil
	})

	rec, err := a.Prober.Probe(ctx, args.URL, urlnet.Text(args.Params), listener)
	if err != nil {
		return err
	}

	var sink io.Writer = os.Stdout
	if args.Out != "" && args.Out != "-" {
		f, ferr := os.Create(args.Out)
		if ferr != nil {
			return fmt.Errorf("creating output file: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing output file: %w", cerr)
			}
		}()
		sink = f
	}

	bw := bufio.NewWriter(sink)
	if _, err = bw.Write(rec.Document); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return bw.Flush()
}

func serve(ctx context.Context, a *app.Application) error {
	srv := server.NewServer(server.Config{
		ListenAddr: a.Config.ListenAddr,
		Logger:     a.Logger.With(logging.Field{Key: "component", Value: "server"}),
	}, a.Prober)
	httpSrv := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("serving", logging.Field{Key: "addr", Value: httpSrv.Addr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Logger.Info("shutting down")
	return httpSrv.Shutdown(shutdownCtx)
}
