// Command eventplaned runs the event-plane daemon: it consumes the anycast
// and broadcast streams, dispatches events to in-process handlers, hosts the
// background-task manager and serves the SSE/health/metrics API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	envFile    string
	listenAddr string
	redisAddr  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "eventplaned",
	Short: "Event plane daemon",
	Long:  `Distributed event and background-task coordination daemon for the compute-cluster control plane.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the event-plane daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env", ".env", "Path to .env file")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "API listen address (overrides EVENTPLANE_LISTEN_ADDR)")
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address (overrides EVENTPLANE_REDIS_ADDR)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEnv() {
	if envFile == "" {
		return
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}
}
