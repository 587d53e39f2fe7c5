package endpoints

import (
	"github.com/Extazy1/ezmark/internal/api"
	"github.com/Extazy1/ezmark/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	DefraManager    *defra.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Exam template endpoints
		&CreateExamEndpoint{},
		&ListExamsEndpoint{},
		&GetExamEndpoint{},
		&DeleteExamEndpoint{},

		// Class roster endpoints
		&CreateClassEndpoint{},
		&ListClassesEndpoint{},
		&GetClassEndpoint{},
		&DeleteClassEndpoint{},

		// Schedule endpoints
		&CreateScheduleEndpoint{},
		&ListSchedulesEndpoint{},
		&GetScheduleEndpoint{},
		&DeleteScheduleEndpoint{},
		&UploadScanEndpoint{},
		&ScheduleAssetsEndpoint{},

		// Matching endpoints
		&StartMatchEndpoint{},
		&GetMatchEndpoint{},
		&ConnectMatchEndpoint{},
		&DisconnectMatchEndpoint{},

		// Objective scoring endpoints
		&StartObjectiveEndpoint{},
		&ListUncertainEndpoint{},
		&AdjudicateEndpoint{},

		// Subjective grading endpoints
		&StartSubjectiveEndpoint{},
		&GetSuggestionEndpoint{},
		&ScoreSubjectiveEndpoint{},

		// Result endpoints
		&StartResultEndpoint{},
		&GetStatisticsEndpoint{},

		// Job endpoints
		&ListJobsEndpoint{},
		&GetJobEndpoint{},

		// Metrics endpoints
		&MetricsSummaryEndpoint{},
		&ScheduleCostEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// ExamCommands groups exam-template commands under "exams".
func ExamCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateExamEndpoint{},
		&ListExamsEndpoint{},
		&GetExamEndpoint{},
		&DeleteExamEndpoint{},
	}
}

// ClassCommands groups class-roster commands under "classes".
func ClassCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateClassEndpoint{},
		&ListClassesEndpoint{},
		&GetClassEndpoint{},
		&DeleteClassEndpoint{},
	}
}

// ScheduleCommands groups schedule commands under "schedules".
func ScheduleCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateScheduleEndpoint{},
		&ListSchedulesEndpoint{},
		&GetScheduleEndpoint{},
		&DeleteScheduleEndpoint{},
		&UploadScanEndpoint{},
		&GetStatisticsEndpoint{},
		&ScheduleCostEndpoint{},
	}
}

// MatchCommands groups reconciliation commands under "match".
func MatchCommands() []api.Endpoint {
	return []api.Endpoint{
		&StartMatchEndpoint{},
		&GetMatchEndpoint{},
		&ConnectMatchEndpoint{},
		&DisconnectMatchEndpoint{},
	}
}

// ObjectiveCommands groups objective-scoring commands under "objective".
func ObjectiveCommands() []api.Endpoint {
	return []api.Endpoint{
		&StartObjectiveEndpoint{},
		&ListUncertainEndpoint{},
		&AdjudicateEndpoint{},
	}
}

// SubjectiveCommands groups subjective-grading commands under "subjective".
func SubjectiveCommands() []api.Endpoint {
	return []api.Endpoint{
		&StartSubjectiveEndpoint{},
		&GetSuggestionEndpoint{},
		&ScoreSubjectiveEndpoint{},
	}
}

// ResultCommands groups result commands under "result".
func ResultCommands() []api.Endpoint {
	return []api.Endpoint{
		&StartResultEndpoint{},
	}
}

// JobCommands groups job commands under "jobs".
func JobCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
	}
}

// MetricsCommands groups metrics commands under "metrics".
func MetricsCommands() []api.Endpoint {
	return []api.Endpoint{
		&MetricsSummaryEndpoint{},
	}
}
