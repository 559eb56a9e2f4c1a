package models

const (
	// UnknownFileName is used when a document carries no title metadata.
	UnknownFileName = "unknown"

	// QuotaHint is logged after a failed embedding batch.
	QuotaHint = "Consider using a local embedding model (provider: ollama) if you keep hitting quota limits."
)

// DefaultSeparators are tried coarsest first when splitting page text.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", " ", ""}
