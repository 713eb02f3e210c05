// Command ragchat serves the retrieval-augmented chat API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragchat/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "ragchat",
	Short:         "Retrieval-augmented chat backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println("ragchat " + version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ragchat:", err)
		os.Exit(1)
	}
}
