package synth

import "context"

// Request carries one job's sanitized input into the pipeline.
type Request struct {
	ID       string
	Content  string
	Language string
	Title    string
}

// Result is what the pipeline hands back for a finished job.
type Result struct {
	AudioURL    string
	DurationSec float64
}

// Provider turns text into podcast audio. Implementations own the whole
// pipeline behind this call.
type Provider interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
}
