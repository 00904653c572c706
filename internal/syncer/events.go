package syncer

// Phase identifies one stage of a sync run.
type Phase string

// Sync phases, executed in this order.
const (
	PhaseProducts    Phase = "products"
	PhaseCollections Phase = "collections"
	PhaseArticles    Phase = "articles"
	PhasePages       Phase = "pages"
	PhasePolicies    Phase = "policies"
	PhaseThemes      Phase = "themes"
)

// AllPhases lists the phases in execution order.
var AllPhases = []Phase{
	PhaseProducts,
	PhaseCollections,
	PhaseArticles,
	PhasePages,
	PhasePolicies,
	PhaseThemes,
}

// Event types emitted over the progress stream.
const (
	EventTypeProgress = "progress"
	EventTypeComplete = "complete"
	EventTypeError    = "error"
)

// Event is one frame of the streamed sync protocol.
type Event struct {
	Type    string `json:"type"`
	Phase   Phase  `json:"phase,omitempty"`
	Message string `json:"message,omitempty"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Stats   *Stats `json:"stats,omitempty"`
}

// Stats summarizes one sync run. A run with entries in Errors is a partial
// success: the listed phases failed, the rest completed.
type Stats struct {
	Products    int      `json:"products"`
	Collections int      `json:"collections"`
	Articles    int      `json:"articles"`
	Pages       int      `json:"pages"`
	Policies    int      `json:"policies"`
	Themes      int      `json:"themes"`
	Errors      []string `json:"errors,omitempty"`
}

// add records the number of synced resources for a phase.
func (s *Stats) add(phase Phase, count int) {
	switch phase {
	case PhaseProducts:
		s.Products += count
	case PhaseCollections:
		s.Collections += count
	case PhaseArticles:
		s.Articles += count
	case PhasePages:
		s.Pages += count
	case PhasePolicies:
		s.Policies += count
	case PhaseThemes:
		s.Themes += count
	}
}
