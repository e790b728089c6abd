package instrumentation

// Cardinality management helpers for metrics. Label values that come from
// configuration or user input are folded into a fixed set so a typo cannot
// create a new time series.

var knownSources = map[string]bool{
	"gmail": true,
	"imap":  true,
	"mbox":  true,
	"demo":  true,
}

var knownStages = map[string]bool{
	StageFetch:   true,
	StageExtract: true,
	StageCluster: true,
	StageLabel:   true,
}

// NormalizeSource maps a session source name to a bounded label value.
//
//	NormalizeSource("imap")   // "imap"
//	NormalizeSource("IMAPS")  // "other"
//	NormalizeSource("")       // "unknown"
func NormalizeSource(source string) string {
	if source == "" {
		return "unknown"
	}
	if knownSources[source] {
		return source
	}
	return "other"
}

// NormalizeStage maps a stage name to a bounded label value.
func NormalizeStage(stage string) string {
	if knownStages[stage] {
		return stage
	}
	return "other"
}
