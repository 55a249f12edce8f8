// Package services holds the error taxonomy and request-scoped context
// helpers shared by the external collaborator clients and the pipeline.
package services
