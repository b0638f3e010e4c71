package scenario

import (
	"strings"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/model"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/provider"
)

// Dimensions is the embedding length of the mock embedder.
const Dimensions = 768

// Mocks bundles the in-memory capabilities behind a Provider.
type Mocks struct {
	Model    *model.MockModel
	Embedder *model.MockEmbedder
	Searcher *model.MockSearcher
	Provider *provider.Provider
}

// New builds an unscripted capability set.
func New(optFns ...func(o *provider.Options)) (*Mocks, error) {
	m := &Mocks{
		Model:    model.NewMockModel("mock-model", "mock"),
		Embedder: model.NewMockEmbedder(Dimensions),
		Searcher: model.NewMockSearcher(),
	}
	p, err := provider.New(m.Model, m.Embedder, m.Searcher, optFns...)
	if err != nil {
		return nil, err
	}
	m.Provider = p
	return m, nil
}

// SegmentOf returns the segment named on the "Segment: " line of a
// per-persona prompt, or "".
func SegmentOf(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Segment: "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
