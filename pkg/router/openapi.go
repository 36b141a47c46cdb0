package router

import (
	"os"

	"chat-assistant/backend/pkg/validator"
)

// AddOpenAPIValidation validates incoming requests against the schema at
// schemaPath and serves the schema itself under /api/docs.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if schemaPath == "" {
		return
	}
	if !fileExists(schemaPath) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.LogError(err, "Failed to initialize OpenAPI validator")
		return
	}

	r.Engine.Use(v.Middleware())
	r.Engine.StaticFile("/api/docs/openapi.yaml", schemaPath)
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath, "operations", v.Operations())
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
