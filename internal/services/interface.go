package services

import "context"

// EngineClient is an interface for communicating with the external workflow
// engine that generates chatflow schemas.
type EngineClient interface {
	// Generate asks the engine to generate a schema for the chatflow. The
	// engine works in the background and writes its result to the chatflow
	// record; callers observe completion by polling the status endpoint.
	Generate(ctx context.Context, chatflowID, description string) error
}
