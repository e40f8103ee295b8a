package config

const (
	// MaxSpecNameLength is the maximum length for a feature spec's featureName.
	// Limited to 255 to match the other short-text columns and keep names scannable.
	MaxSpecNameLength = 255

	// MaxFieldPathLength is the maximum length of a dotted field path
	// such as "useCases.3.acceptanceCriteria.0".
	MaxFieldPathLength = 512

	// MaxFieldPathDepth is the maximum number of segments in a field path.
	// The feature spec schema nests at most four levels; 16 leaves headroom
	// without allowing pathological paths to allocate deep structures.
	MaxFieldPathDepth = 16

	// MaxListIndex bounds positional segments. Reconciliation pads lists up to
	// the index, so an unbounded index would let one request allocate a huge slice.
	MaxListIndex = 999

	// MaxChangeDescriptionLength is the maximum length for a change description.
	MaxChangeDescriptionLength = 2000

	// MaxRequestBodyBytes limits JSON request bodies (10MB).
	MaxRequestBodyBytes = 10 << 20
)
