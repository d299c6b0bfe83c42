package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ppicture",
		Short:         "Real-time collaborative picture editing server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (yaml/json/toml); env PPICTURE_* overrides")

	rootCmd.AddCommand(
		serveCmd(&cfgPath),
		tokenCmd(&cfgPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
