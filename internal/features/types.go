package features

// Version identifies the tokenizer and embedding scheme. Bump it when a
// change would alter vectors for the same input.
const Version = "hash-bow-v1"

// Defaults
const (
	DefaultDimensions    = 256
	DefaultSubjectTokens = 5

	subjectWeight = 2.0
	bodyWeight    = 1.0
	minTokenLen   = 3
)

// Config controls extraction. The zero value uses the defaults.
type Config struct {
	// Dimensions is the length of the embedding vector.
	Dimensions int `yaml:"dimensions"`
	// SubjectTokens caps the number of primary subject tokens kept as tags.
	SubjectTokens int `yaml:"subject_tokens"`
	// StopWords extends the built-in stop-word list.
	StopWords []string `yaml:"stop_words"`
}

// Bulk markers reported in FeatureVector.BulkMarkers.
const (
	MarkerListUnsubscribe = "list-unsubscribe"
	MarkerListID          = "list-id"
	MarkerPrecedence      = "precedence"
	MarkerAutoSubmitted   = "auto-submitted"
	MarkerMarketingMailer = "marketing-mailer"
	MarkerNoReplySender   = "noreply-sender"
)

// FeatureVector is the derived representation of exactly one message.
type FeatureVector struct {
	MessageID string

	// Embedding is L2-normalized, or all zeros for a message with no tokens.
	Embedding []float64

	SenderDomain string
	// BulkMarkers is sorted and empty for personal mail.
	BulkMarkers []string
	// SubjectTokens are the leading distinct subject tokens after
	// normalization and stop-word removal.
	SubjectTokens []string
}

// Bulk reports whether any bulk-mail marker was detected.
func (fv FeatureVector) Bulk() bool {
	return len(fv.BulkMarkers) > 0
}
