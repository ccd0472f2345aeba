// Package score defines the scoring method and aggregation vocabulary.
package score

// Method is one way of scoring a document against a word.
type Method string

// Scoring method constants.
const (
	// WordCount scores a document by occurrence counts of each word.
	WordCount Method = "word_count"
	// WordPresence scores 1 if the word appears at least once, else 0.
	WordPresence Method = "word_presence"
	// Similarity scores by embedding cosine similarity between document and word.
	Similarity Method = "similarity"
)

// MethodOrder is the canonical left-to-right output column order.
// Disabling a method removes its column without reordering the rest.
var MethodOrder = []Method{WordCount, WordPresence, Similarity}

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	return m == WordCount || m == WordPresence || m == Similarity
}

// ColumnName returns the output column caption for the method.
func (m Method) ColumnName() string {
	switch m {
	case WordCount:
		return "Word count"
	case WordPresence:
		return "Word presence"
	case Similarity:
		return "Similarity"
	default:
		return string(m)
	}
}

// NeedsEmbedding reports whether the method requires an embedding backend.
func (m Method) NeedsEmbedding() bool { return m == Similarity }

// OrderMethods returns the enabled methods in canonical column order,
// dropping duplicates and unknown values.
func OrderMethods(enabled []Method) []Method {
	set := make(map[Method]struct{}, len(enabled))
	for _, m := range enabled {
		if m.IsValid() {
			set[m] = struct{}{}
		}
	}
	ordered := make([]Method, 0, len(set))
	for _, m := range MethodOrder {
		if _, ok := set[m]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered
}
