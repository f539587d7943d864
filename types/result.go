package types

// AssistantKind is the closed set of assistant message kinds attached to a
// SearchResult (spec §3.8, §4.6 step 9).
type AssistantKind string

const (
	AssistantKindClarify     AssistantKind = "CLARIFY"
	AssistantKindSummary     AssistantKind = "SUMMARY"
	AssistantKindGateFail    AssistantKind = "GATE_FAIL"
	AssistantKindNudgeRefine AssistantKind = "NUDGE_REFINE"
)

// AssistantMessage is the single user-facing message accompanying a result
// (spec §3.8). BlocksSearch mirrors IntentDecision.BlocksSearch when the
// gate stage short-circuits the pipeline.
type AssistantMessage struct {
	Kind         AssistantKind `json:"kind"`
	Text         string        `json:"text"`
	BlocksSearch bool          `json:"blocksSearch,omitempty"`
}

// DistanceOrigin records which coordinate, if any, ranking distances were
// computed from (spec §4.4).
type DistanceOrigin string

const (
	DistanceOriginUser DistanceOrigin = "USER_LOCATION"
	DistanceOriginCity DistanceOrigin = "CITY_CENTER"
	DistanceOriginNone DistanceOrigin = "NONE"
)

// ResultMeta carries the observability fields a client needs to explain a
// result without re-deriving them (spec §3.8).
type ResultMeta struct {
	FetchedCount     int            `json:"fetchedCount"`
	ReturnedCount    int            `json:"returnedCount"`
	RankingProfile   string         `json:"rankingProfile"`
	DistanceOrigin   DistanceOrigin `json:"distanceOrigin"`
	ContractsVersion string         `json:"contractsVersion"`
	IsStale          bool           `json:"isStale,omitempty"`
}

// SearchResult is the terminal payload of a search job (spec §3.8). It is
// embedded verbatim in a JobRecord once the job reaches a terminal status.
type SearchResult struct {
	Places    []Place          `json:"places"`
	Assistant AssistantMessage `json:"assistant"`
	Meta      ResultMeta       `json:"meta"`
}
