package llm

// Backend identifies which provider family a routed request targets.
type Backend string

const (
	BackendPrimary   Backend = "primary"
	BackendSecondary Backend = "secondary"
)

// Selection is the outcome of routing one transcript: the backend family,
// the concrete model name, and the output token ceiling to request.
type Selection struct {
	Backend         Backend
	Model           string
	MaxOutputTokens int
}

// Router maps transcript size to a model tier. Thresholds and model names
// are injected from config so deployments can retier without a rebuild.
type Router struct {
	PrimaryMaxChars    int
	EconomicalMaxChars int
	PrimaryModel       string
	ModelEconomical    string
	ModelHighCapacity  string
}

const (
	primaryOutputTokens      = 8192
	economicalOutputTokens   = 16384
	highCapacityOutputTokens = 32768
)

// Route is a pure function of transcript length in characters, counted as
// runes. Boundaries are inclusive on the lower tier.
func (r Router) Route(transcriptChars int) Selection {
	switch {
	case transcriptChars <= r.PrimaryMaxChars:
		return Selection{Backend: BackendPrimary, Model: r.PrimaryModel, MaxOutputTokens: primaryOutputTokens}
	case transcriptChars <= r.EconomicalMaxChars:
		return Selection{Backend: BackendSecondary, Model: r.ModelEconomical, MaxOutputTokens: economicalOutputTokens}
	default:
		return Selection{Backend: BackendSecondary, Model: r.ModelHighCapacity, MaxOutputTokens: highCapacityOutputTokens}
	}
}
