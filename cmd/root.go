package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-animator",
	Short: "Animate still photos from live facial landmarks",
	Long: `Face Animator turns streamed facial landmark frames into head pose,
mouth and eye state and a render transform, and broadcasts the result to
every viewer of an animation session over WebSockets.`,
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
