package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Attendance kiosk that recognizes students with a hosted vision model",
	Long: `Face Attendance serves a browser kiosk that captures a still from the camera,
asks a hosted vision model (Gemini or OpenAI) which registered student it shows,
and records attendance. Admin commands manage the roster and the attendance log.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().Bool("memory", false, "Use an in-memory store instead of DATABASE_URL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
