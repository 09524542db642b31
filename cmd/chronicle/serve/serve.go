// Package servecmder provides the `chronicle serve` CLI command.
package servecmder

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/storylore/chronicle/api"
	"github.com/storylore/chronicle/cmd/chronicle/runtime"
	"github.com/storylore/chronicle/pkg/extract"
)

const serveLongDesc string = `Run the chronicle HTTP API server.

Exposes extraction, backfill, and recall over HTTP so roleplay frontends can
drive the memory pipeline without linking the Go packages directly.

Examples:
  chronicle serve
  chronicle serve --listen :8090
  chronicle serve --sqlite ./story.db`

const serveShortDesc string = "Run the chronicle API server"

type serveCommander struct {
	listen     string
	sqlitePath string
	provider   string
}

// NewServeCmd creates the serve cobra command.
func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address for the API server to listen on")
	cmd.Flags().StringVar(&cmder.sqlitePath, "sqlite", "", "Path to SQLite database")
	cmd.Flags().StringVar(&cmder.provider, "storage", "", "Storage provider (sqlite, postgres, inmemory)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	debug, _ := cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	// The server is constructed after the runtime, so the status sink
	// forwards through a pointer that is set before any request arrives.
	var server *api.Server
	statusSink := func(s extract.Status) {
		if server != nil {
			server.SetStatus(s)
		}
	}

	rt, err := runtime.Build(ctx, configDir, debug, runtime.Overrides{
		SQLitePath:      c.sqlitePath,
		StorageProvider: c.provider,
	}, statusSink)
	if err != nil {
		return err
	}
	defer rt.Close()

	listen := c.listen
	if listen == "" {
		listen = rt.Config.API.Listen
	}

	server = api.NewServer(api.Config{ListenAddr: listen}, rt.Store, rt.Extractor, rt.Scheduler, rt.Retriever, rt.Logger)

	// Shut down cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		rt.Logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			rt.Logger.Warn("shutdown error", zap.Error(err))
		}
	}()

	return server.Run()
}
