package model

// IngestEnvelope carries one raw log line with source metadata.
// It is the transport contract between the line source and the pipeline.
type IngestEnvelope struct {
	Source string
	Line   string
}
