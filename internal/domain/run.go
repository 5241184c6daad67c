package domain

// Stage marks how far an article progressed through the ingestion pipeline.
type Stage string

const (
	StageFetched   Stage = "FETCHED"
	StageExtracted Stage = "EXTRACTED"
	StageEmbedded  Stage = "EMBEDDED"
	StageStored    Stage = "STORED"

	StageExtractionFailed Stage = "EXTRACTION_FAILED"
	StageEmbeddingFailed  Stage = "EMBEDDING_FAILED"
	StageStoreFailed      Stage = "STORE_FAILED"
)

// Failure records one article that terminally failed during a run.
type Failure struct {
	ArticleID string
	URL       string
	Stage     Stage
	Reason    string
}

// RunSummary is emitted at the end of an ingestion run. Partial success
// is the normal outcome; failures are carried here instead of aborting.
type RunSummary struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    []Failure
}
