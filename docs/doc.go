// Package docs provides generated OpenAPI documentation.
//
// ezmark API
//
//	@title			ezmark API
//	@version		1.0
//	@description	Exam grading pipeline API for managing exams, rosters, schedules and grading stages.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/Extazy1/ezmark
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/ezmark/serve.go -o ./swagger --parseDependency --parseInternal
