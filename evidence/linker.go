package evidence

// EdgeWriter is the view of a Graph handed to stages that may read nodes and
// link claims but must never add or change nodes.
type EdgeWriter interface {
	SubjectID() string
	NodeCount() int
	Node(id string) (Node, bool)
	Search(query string, limit int) []Match
	Supported(claimID, claim string) bool
	Link(claimID, claim string, nodeIDs []string, score float64, stage string) (Edge, error)
}

var _ EdgeWriter = (*Graph)(nil)

// Claim is a statement a stage wants backed by evidence.
type Claim struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Origin string `json:"origin"`
}

// Linker attaches claims to supporting nodes using lexical containment:
// a node supports a claim when at least MinScore of the claim's tokens
// appear in the node. Up to MaxEvidence best nodes are linked per claim.
type Linker struct {
	MinScore    float64
	MaxEvidence int
}

// DefaultLinker returns the reference heuristic (min score 0.2, max 3 nodes).
func DefaultLinker() Linker {
	return Linker{MinScore: 0.2, MaxEvidence: 3}
}

// LinkOutcome reports the result of linking one claim.
type LinkOutcome struct {
	Claim       Claim    `json:"claim"`
	Supported   bool     `json:"supported"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
	Score       float64  `json:"score"`
}

// Link searches g for each claim and records edges. Claims with no node at
// or above MinScore are returned with Supported=false and get no edge.
func (l Linker) Link(g EdgeWriter, claims []Claim, stage string) ([]LinkOutcome, error) {
	out := make([]LinkOutcome, 0, len(claims))
	for _, c := range claims {
		res := l.match(g, c)
		if res.Supported {
			if _, err := g.Link(c.ID, c.Text, res.EvidenceIDs, res.Score, stage); err != nil {
				return out, err
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// Preview reports what Link would do without writing edges.
func (l Linker) Preview(g EdgeWriter, claims []Claim) []LinkOutcome {
	out := make([]LinkOutcome, 0, len(claims))
	for _, c := range claims {
		out = append(out, l.match(g, c))
	}
	return out
}

func (l Linker) match(g EdgeWriter, c Claim) LinkOutcome {
	limit := l.MaxEvidence
	if limit <= 0 {
		limit = 3
	}
	res := LinkOutcome{Claim: c}
	for _, m := range g.Search(c.Text, 0) {
		if m.Score < l.MinScore {
			break
		}
		if m.Score > res.Score {
			res.Score = m.Score
		}
		res.EvidenceIDs = append(res.EvidenceIDs, m.Node.ID)
		if len(res.EvidenceIDs) == limit {
			break
		}
	}
	res.Supported = len(res.EvidenceIDs) > 0
	if !res.Supported {
		res.Score = 0
	}
	return res
}
