// Command liquidador is the operator console of the liquidaciones API: it
// reconciles invoices and works the transfer request queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finanzas/liquidaciones/internal/infrastructure/apiclient"
	"github.com/finanzas/liquidaciones/internal/infrastructure/config"
	"github.com/finanzas/liquidaciones/internal/infrastructure/logger"
)

type options struct {
	apiURL   string
	userID   string
	timeout  time.Duration
	logLevel string
}

var (
	opts   options
	log    = zap.NewNop()
	client *apiclient.Client
)

var rootCmd = &cobra.Command{
	Use:           "liquidador",
	Short:         "Operator console for invoice liquidation and transfer requests",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(config.LogConfig{Level: opts.logLevel, Format: "console", Output: "stderr"})
		if err != nil {
			return err
		}
		log = l

		var user uuid.UUID
		if opts.userID != "" {
			user, err = uuid.Parse(opts.userID)
			if err != nil {
				return fmt.Errorf("invalid --user %q: %w", opts.userID, err)
			}
		}
		client, err = apiclient.New(apiclient.Config{
			BaseURL: opts.apiURL,
			UserID:  user,
			Timeout: opts.timeout,
		}, apiclient.WithLogger(log))
		return err
	},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("LIQ_API_URL", "http://localhost:8080"), "base URL of the liquidaciones API")
	flags.StringVar(&opts.userID, "user", os.Getenv("LIQ_USER_ID"), "acting user id sent as X-User-ID")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(facturaCommand(), transferenciasCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
