package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stand up the airdrop trie HTTP API and metrics server",
	Long: `Usage

./airdrop-trie-service serve --config={path to toml config file}`,
	Run: func(cmd *cobra.Command, args []string) {
		subCommand = cmd.CalledAs()
		logWithCommand = *logrus.WithField("SubCommand", subCommand)
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	logWithCommand.Info("running airdrop-trie-service serve command")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := buildDeps(ctx)
	if err != nil {
		logWithCommand.Fatal("unable to wire dependencies: ", err)
	}
	defer d.db.Close()

	httpServer := &http.Server{
		Addr:    d.config.Server.HTTPAddress,
		Handler: d.server.Handler(),
	}

	go func() {
		logWithCommand.Info("starting http api on ", d.config.Server.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logWithCommand.Fatal("http api failed: ", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	logWithCommand.Info("shutting down airdrop-trie-service")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logWithCommand.Error("error during http api shutdown: ", err)
	}
}
