package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pace",
		Short:         "Bible reading pace calculator",
		Long:          "Lists the books of the Bible and computes how many chapters a day are needed to finish by a deadline.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "print JSON instead of text")
	rootCmd.AddCommand(newBooksCmd())
	rootCmd.AddCommand(newCalcCmd())
	return rootCmd
}
