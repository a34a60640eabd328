package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/whyvarun/support-IQ/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "supportiqd",
		Short: "SupportIQ daemon and CLI",
		Long:  "SupportIQ daemon for running the API server and managing the knowledge base",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.PromoteCmd())
	rootCmd.AddCommand(admin.BackfillCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
