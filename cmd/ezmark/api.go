package main

import (
	"github.com/spf13/cobra"

	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running ezmark server via HTTP.

These commands require a running server (ezmark serve).
Use --server to specify a custom server URL.

Examples:
  ezmark api health                        # Check server health
  ezmark api schedules list                # List grading schedules
  ezmark api schedules upload <id> <pdf>   # Upload a scan PDF`,
}

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Exam template commands",
}

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Class roster commands",
}

var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Grading schedule commands",
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Roster match reconciliation commands",
}

var objectiveCmd = &cobra.Command{
	Use:   "objective",
	Short: "Objective scoring commands",
}

var subjectiveCmd = &cobra.Command{
	Use:   "subjective",
	Short: "Subjective grading commands",
}

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Result aggregation commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Metrics and cost tracking commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

// addEndpointCommands attaches each endpoint's CLI command to parent.
// Endpoints without a CLI surface return a nil command and are skipped.
func addEndpointCommands(parent *cobra.Command, eps []api.Endpoint) {
	for _, ep := range eps {
		if cmd := ep.Command(getServerURL); cmd != nil {
			parent.AddCommand(cmd)
		}
	}
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Stage and resource groups
	addEndpointCommands(examsCmd, endpoints.ExamCommands())
	addEndpointCommands(classesCmd, endpoints.ClassCommands())
	addEndpointCommands(schedulesCmd, endpoints.ScheduleCommands())
	addEndpointCommands(matchCmd, endpoints.MatchCommands())
	addEndpointCommands(objectiveCmd, endpoints.ObjectiveCommands())
	addEndpointCommands(subjectiveCmd, endpoints.SubjectiveCommands())
	addEndpointCommands(resultCmd, endpoints.ResultCommands())
	addEndpointCommands(jobsCmd, endpoints.JobCommands())
	addEndpointCommands(metricsCmd, endpoints.MetricsCommands())

	// Swagger spec dump at top level
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(examsCmd)
	apiCmd.AddCommand(classesCmd)
	apiCmd.AddCommand(schedulesCmd)
	apiCmd.AddCommand(matchCmd)
	apiCmd.AddCommand(objectiveCmd)
	apiCmd.AddCommand(subjectiveCmd)
	apiCmd.AddCommand(resultCmd)
	apiCmd.AddCommand(jobsCmd)
	apiCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(apiCmd)
}
