package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/tracewright/internal/app"
)

const (
	prompt          = "(tw) "
	shutdownTimeout = 5 * time.Second
)

func newRunCommand(g *globals) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Start an interactive debugging session",
		Long: `Start an interactive debugging session reading commands from stdin.
When an image path is given it is loaded before the first prompt.
Type "help" for the list of commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			image := ""
			if len(args) == 1 {
				image = args[0]
			}
			return runSession(ctx, g, image, metricsAddr, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runSession(ctx context.Context, g *globals, image, metricsAddr string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	s, err := app.NewSession(app.Options{
		Config:     g.cfg,
		ConfigPath: g.configFile,
		Logger:     g.logger,
		Levels:     g.levels,
		Registry:   reg,
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	var srv *http.Server
	if metricsAddr != "" {
		srv, err = serveMetrics(metricsAddr, reg)
		if err != nil {
			_ = s.Shutdown(context.Background())
			return err
		}
		g.logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
	}

	console := app.NewConsole(s, out)
	quit := false
	exec := func(line string) {
		if quit {
			return
		}
		err := console.Exec(line)
		switch {
		case errors.Is(err, app.ErrQuit):
			quit = true
			cancel()
			return
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
		}
		fmt.Fprint(out, prompt)
	}

	if image != "" {
		exec("load " + image)
	} else {
		fmt.Fprint(out, prompt)
	}

	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			line := sc.Text()
			if !s.Loop.Schedule(func() { exec(line) }) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			g.logger.Warn().Err(err).Msg("reading commands")
		}
		s.Loop.Schedule(cancel)
	}()

	runErr := s.Loop.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	quit = true
	console.Close()
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := s.Shutdown(shutdownCtx); err != nil {
		g.logger.Error().Err(err).Msg("session shutdown")
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	return runErr
}

func serveMetrics(addr string, reg *prometheus.Registry) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	return srv, nil
}
