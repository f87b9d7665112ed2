package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	agentcfg "rescue-alert-service/internal/agent/config"
	Logger "rescue-alert-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	jsonOutput bool
	v          = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "rescue-agent",
	Short: "Offline-first emergency alert agent",
	Long: `Raise and resolve emergency alerts. Without connectivity alerts are queued on the
device and broadcast by SMS; the queue is synced to the server when the device reconnects.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rescue-agent.yaml)")
	pf.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	pf.String("server", "", "canonical store URL")
	pf.String("token", "", "access token")
	pf.String("data-dir", "", "device data directory")
	pf.Int("sim-slot", -1, "SIM slot for SMS (-1 lets the modem choose)")

	_ = v.BindPFlag("server_url", pf.Lookup("server"))
	_ = v.BindPFlag("access_token", pf.Lookup("token"))
	_ = v.BindPFlag("data_dir", pf.Lookup("data-dir"))
	_ = v.BindPFlag("sim_slot", pf.Lookup("sim-slot"))
}

func initConfig() {
	if err := agentcfg.Init(v, cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging sends logs to the data dir; quiet keeps them off the terminal.
func setupLogging(dataDir string, quiet bool) {
	if err := Logger.SetupLoggerWithOptions(Logger.Options{
		Dir:   filepath.Join(dataDir, "logs"),
		Quiet: quiet,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志配置失败: %v\n", err)
	}
}

func printJSON(x interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(x)
}
