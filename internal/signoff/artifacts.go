package signoff

import "strings"

// Artifact names uploaded by the analysis workflow. Each run uploads two
// zero-byte artifacts named "<key>=<true|false>".
const (
	ArtifactIncrementalTypeSpec = "incremental-typespec"
	ArtifactTrivialChanges      = "trivial-changes"
)

// ParseArtifact splits an artifact name of the form key=true|false.
// Any value other than the literal strings "true" and "false" reports ok=false.
func ParseArtifact(name string) (key string, value bool, ok bool) {
	key, raw, found := strings.Cut(name, "=")
	if !found || key == "" {
		return "", false, false
	}
	switch raw {
	case "true":
		return key, true, true
	case "false":
		return key, false, true
	}
	return "", false, false
}

// OutcomeFromArtifacts builds an AnalysisOutcome from a run's artifact names.
// It returns nil unless both keys carry a valid value. A key that appears with
// conflicting values is treated as missing.
func OutcomeFromArtifacts(names []string) *AnalysisOutcome {
	values := make(map[string]bool)
	conflicted := make(map[string]bool)
	for _, name := range names {
		key, value, ok := ParseArtifact(name)
		if !ok {
			continue
		}
		if prev, seen := values[key]; seen && prev != value {
			conflicted[key] = true
		}
		values[key] = value
	}

	incremental, okIncremental := values[ArtifactIncrementalTypeSpec]
	trivial, okTrivial := values[ArtifactTrivialChanges]
	if !okIncremental || !okTrivial {
		return nil
	}
	if conflicted[ArtifactIncrementalTypeSpec] || conflicted[ArtifactTrivialChanges] {
		return nil
	}

	return &AnalysisOutcome{
		IncrementalTypeSpec: incremental,
		IsTrivial:           trivial,
	}
}
