package ai

import "context"

// Client is the port for the narrative analyst backend. The input is the
// exported findings bundle as JSON text; the output is the model's report.
type Client interface {
	Analyze(ctx context.Context, report string) (string, error)
}
