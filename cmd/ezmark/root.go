package main

import (
	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "ezmark",
	Short: "Exam grading pipeline with AI-assisted scoring",
	Long: `ezmark is an exam grading pipeline that turns a scanned stack of answer
sheets into per-student scores and class statistics.

The pipeline includes:
  - Scan decomposition into per-student papers and per-question crops
  - AI name recognition matched against the class roster
  - Objective answer recognition and scoring with teacher adjudication
  - AI grading suggestions for free-response questions
  - Score aggregation and class statistics`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ezmark/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "ezmark home directory (default: ~/.ezmark)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
