package cmd

import (
	"os"

	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cerc-io/airdrop-trie-service/pkg/prom"
)

var (
	cfgFile        string
	subCommand     string
	logWithCommand logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:              "airdrop-trie-service",
	Short:            "Deterministic Merkle-trie generation and eligibility service for airdrop rounds",
	PersistentPreRun: initFuncs,
}

// Execute runs the root command.
func Execute() {
	logrus.Info("----- Starting airdrop-trie-service -----")
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func initFuncs(cmd *cobra.Command, args []string) {
	logrus.SetOutput(os.Stdout)
	if err := logLevel(); err != nil {
		logrus.Fatal("could not set log level: ", err)
	}

	if viper.GetBool("prom.metrics") {
		logrus.Info("initializing prometheus metrics")
		prom.Init()
	}
	if viper.GetBool("prom.http") {
		addr := viper.GetString("server.metrics_address")
		logrus.Info("starting prometheus server on ", addr)
		prom.Listen(addr)
	}
}

func logLevel() error {
	viper.BindEnv("log.level", "LOG_LEVEL")
	lvl, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	if lvl > logrus.InfoLevel {
		logrus.SetReportCaller(true)
	}
	logrus.Info("log level set to ", lvl.String())
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file location")
	rootCmd.PersistentFlags().Bool("prom-metrics", false, "enable prometheus metrics")
	rootCmd.PersistentFlags().Bool("prom-http", false, "enable prometheus http service")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal, panic)")

	viper.BindPFlag("prom.metrics", rootCmd.PersistentFlags().Lookup("prom-metrics"))
	viper.BindPFlag("prom.http", rootCmd.PersistentFlags().Lookup("prom-http"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			logrus.Fatal("could not read config file: ", err)
		}
		logrus.Info("using config file: ", viper.ConfigFileUsed())
	}
}
