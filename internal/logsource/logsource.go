package logsource

import "github.com/tinytelemetry/logstats/internal/model"

// LogSource is the input contract of the pipeline.
type LogSource interface {
	Lines() <-chan model.IngestEnvelope // closed on end of input, read error or Stop
	Stop()                              // idempotent
	Name() string
}
