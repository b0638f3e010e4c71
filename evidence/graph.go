package evidence

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/textutil"
	"github.com/google/uuid"
)

// SourceType classifies where an evidence node came from.
type SourceType string

const (
	SourceResearchFinding  SourceType = "research-finding"
	SourceCustomerQuote    SourceType = "customer-quote"
	SourceMarketReport     SourceType = "market-report"
	SourceIndustryAnalysis SourceType = "industry-analysis"
	SourceTrendData        SourceType = "trend-data"
	SourceCompetitorIntel  SourceType = "competitor-intel"
	// SourceModelGenerated marks material a model wrote without a search
	// index behind it. Its references are unverified.
	SourceModelGenerated SourceType = "model-generated"
)

var (
	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("evidence node not found")
	// ErrSubjectMismatch is returned when a write targets another subject's graph.
	ErrSubjectMismatch = errors.New("evidence graph belongs to another subject")
)

// Node is a unit of supporting material. Immutable once added.
type Node struct {
	ID              string     `json:"id"`
	SourceType      SourceType `json:"source_type"`
	Content         string     `json:"content"`
	SourceReference string     `json:"source_reference"`
	Confidence      float64    `json:"confidence"`
	CreatedByStage  string     `json:"created_by_stage"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Edge links a claim to the nodes that support it (a Reason To Believe).
type Edge struct {
	ID             string    `json:"id"`
	ClaimID        string    `json:"claim_id,omitempty"`
	Claim          string    `json:"claim"`
	NodeIDs        []string  `json:"node_ids"`
	Score          float64   `json:"score"`
	CreatedByStage string    `json:"created_by_stage"`
	CreatedAt      time.Time `json:"created_at"`
}

// Match is a search hit.
type Match struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// Graph is the per-subject evidence arena. Safe for concurrent use.
type Graph struct {
	mu        sync.RWMutex
	subjectID string
	nodes     []Node
	tokens    [][]string
	edges     []Edge
	nodeIndex map[string]int
	byClaim   map[string][]int
	now       func() time.Time
}

// NewGraph creates an empty graph owned by subjectID.
func NewGraph(subjectID string) *Graph {
	return &Graph{
		subjectID: subjectID,
		nodeIndex: make(map[string]int),
		byClaim:   make(map[string][]int),
		now:       time.Now,
	}
}

// SubjectID returns the owning subject.
func (g *Graph) SubjectID() string { return g.subjectID }

// CheckSubject fails when subjectID is not the graph's owner.
func (g *Graph) CheckSubject(subjectID string) error {
	if subjectID != g.subjectID {
		return fmt.Errorf("%w: graph %q, caller %q", ErrSubjectMismatch, g.subjectID, subjectID)
	}
	return nil
}

// AddNode appends a node, assigning an id and timestamp when absent. The
// stored copy is returned.
func (g *Graph) AddNode(n Node) (Node, error) {
	n.Content = strings.TrimSpace(n.Content)
	if n.Content == "" {
		return Node{}, errors.New("evidence: node content is empty")
	}
	if math.IsNaN(n.Confidence) || n.Confidence < 0 || n.Confidence > 1 {
		return Node{}, fmt.Errorf("evidence: confidence %v outside [0,1]", n.Confidence)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, dup := g.nodeIndex[n.ID]; dup {
		return Node{}, fmt.Errorf("evidence: node %s already exists", n.ID)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = g.now()
	}
	g.nodeIndex[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.tokens = append(g.tokens, textutil.Tokenize(n.Content))
	return n, nil
}

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Link records that claim is supported by nodeIDs. Every id must resolve to
// an existing node with content.
func (g *Graph) Link(claimID, claim string, nodeIDs []string, score float64, stage string) (Edge, error) {
	if strings.TrimSpace(claim) == "" {
		return Edge{}, errors.New("evidence: claim is empty")
	}
	if len(nodeIDs) == 0 {
		return Edge{}, errors.New("evidence: edge needs at least one node")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range nodeIDs {
		i, ok := g.nodeIndex[id]
		if !ok {
			return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
		if g.nodes[i].Content == "" {
			return Edge{}, fmt.Errorf("evidence: node %s has no content", id)
		}
	}
	e := Edge{
		ID:             uuid.NewString(),
		ClaimID:        claimID,
		Claim:          claim,
		NodeIDs:        append([]string(nil), nodeIDs...),
		Score:          score,
		CreatedByStage: stage,
		CreatedAt:      g.now(),
	}
	key := claimKey(claimID, claim)
	g.byClaim[key] = append(g.byClaim[key], len(g.edges))
	g.edges = append(g.edges, e)
	return e, nil
}

func claimKey(claimID, claim string) string {
	if claimID != "" {
		return "id:" + claimID
	}
	return "text:" + textutil.NormalizeName(claim)
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		e.NodeIDs = append([]string(nil), e.NodeIDs...)
		out[i] = e
	}
	return out
}

// EdgesFor returns the edges recorded for a claim (by id when set, else by text).
func (g *Graph) EdgesFor(claimID, claim string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx := g.byClaim[claimKey(claimID, claim)]
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.edges[i])
	}
	return out
}

// Supported reports whether the claim has at least one edge.
func (g *Graph) Supported(claimID, claim string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byClaim[claimKey(claimID, claim)]) > 0
}

// Search ranks nodes by the fraction of query tokens they contain, weighted
// by node confidence as a tie-breaker. Nodes sharing no token are skipped.
// Equal scores keep insertion order.
func (g *Graph) Search(query string, limit int) []Match {
	q := textutil.Tokenize(query)
	if len(q) == 0 {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	matches := make([]Match, 0)
	for i, n := range g.nodes {
		s := textutil.Containment(q, g.tokens[i])
		if s == 0 {
			continue
		}
		matches = append(matches, Match{Node: n, Score: s})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].Node.Confidence > matches[b].Node.Confidence
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Snapshot is a serializable copy of the graph.
type Snapshot struct {
	SubjectID string `json:"subject_id"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
}

// Snapshot returns a point-in-time copy.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{SubjectID: g.subjectID, Nodes: g.Nodes(), Edges: g.Edges()}
}
