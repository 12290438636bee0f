package constant

// Watermill topics.
const (
	TopicDocumentEmbed = "document.embed"
)

// Chunking parameters for document ingestion. Roughly 375 tokens per
// chunk keeps every chunk well inside embedding model limits.
const (
	ChunkSize    = 1500
	ChunkOverlap = 200
)
