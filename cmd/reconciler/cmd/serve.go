package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bank-ledger-reconciler/cmd/reconciler/config"
	"bank-ledger-reconciler/internal/api"
	"bank-ledger-reconciler/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reconciliation over HTTP",
	Long: `Serve starts the HTTP API used by the web front end.

Endpoints:
  GET  /api/health             liveness check
  POST /api/reconcile          multipart "bank" and "ledger" CSV files, JSON result
  POST /api/reconcile/report   same input, reconciliation_report.xlsx attachment

Requests may override amount_tolerance, date_tolerance, desc_threshold,
similarity and preset as form fields. The thresholds from the config file and
RECONCILER_* variables are the defaults for every request.

Examples:
  reconciler serve
  reconciler serve --port 9000 --allowed-origins https://books.example.com
  RECONCILER_PRESET=strict reconciler serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", api.DefaultConfig().Port, "port to listen on")
	serveCmd.Flags().StringSlice("allowed-origins", api.DefaultConfig().AllowedOrigins, "CORS origins; \"*\" allows any")

	viper.BindPFlag(config.KeyServerPort, serveCmd.Flags().Lookup("port"))
	viper.BindPFlag(config.KeyServerAllowedOrigins, serveCmd.Flags().Lookup("allowed-origins"))
}

func runServe(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	base := loaded.ReconcilerConfig()
	// The server never logs per-request progress.
	base.ReportProgress = false

	if !viper.GetBool(config.KeyVerbose) {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(loaded.Server, base, logger.GetGlobalLogger())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
