package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/taskflow/internal/server"
	"github.com/josephgoksu/taskflow/internal/ui"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task workflow HTTP API",
	Long: `Start the HTTP API under /api. The first start against an empty database
loads the sample users and tasks unless --seed=false is given.

Stop the server with Ctrl+C; in-flight requests get a grace period to finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		seed, _ := cmd.Flags().GetBool("seed")
		return runServe(cmd, port, seed)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from server.port)")
	serveCmd.Flags().Bool("seed", true, "load sample data when the database is empty")
}

func runServe(cmd *cobra.Command, port int, seed bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	if seed {
		seeded, err := a.store.SeedSampleData(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("seed sample data: %w", err)
		}
		if seeded {
			a.log.Info("empty database seeded with sample data")
		}
	}

	if port == 0 {
		port = a.cfg.Server.Port
	}
	srv := server.New(a.svc, a.log, server.Options{
		Port:           port,
		AllowedOrigins: a.cfg.Server.Origins(),
		Mode:           a.cfg.Server.Mode,
	})

	var wg sync.WaitGroup
	errChan := make(chan error, 1)
	srv.Start(&wg, errChan)
	a.log.WithField("addr", srv.Addr()).Info("API server listening")
	url := fmt.Sprintf("http://localhost%s/api", srv.Addr())
	if ui.IsInteractive() {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderPanel("TaskFlow API", url+"\nPress Ctrl+C to stop."))
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "TaskFlow API listening on "+url)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
	case runErr = <-errChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Error("graceful shutdown failed")
	}
	wg.Wait()
	return runErr
}
