package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veriface",
	Short: "A CLI tool for deciding whether two photos show the same person",
	Long: `Veriface compares faces across photographs. It runs a cascade of
detection strategies over several reprocessed variations of each image,
so it keeps working on dark, low-contrast, or oversized inputs, and it
can mask out parts of the images before comparing.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
