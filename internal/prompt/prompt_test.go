package prompt

import (
	"context"
	"testing"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Render(t *testing.T) {
	tmpl := New("greeting", `Business: {{.Name}}
Goals:
{{bullets .Goals}}
Tags: {{join ", " .Tags}}`)

	out, err := tmpl.Render(map[string]any{
		"Name":  "Joe's Restaurant",
		"Goals": []string{"grow", "retain"},
		"Tags":  []string{"food", "italian"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Business: Joe's Restaurant\nGoals:\n- grow\n- retain\nTags: food, italian", out)
}

func TestTemplate_MissingKey(t *testing.T) {
	tmpl := New("missing", "{{.Absent}}")
	_, err := tmpl.Render(map[string]any{})
	assert.Error(t, err)
}

func TestRender_FastPath(t *testing.T) {
	out, err := Render("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)

	out, err = Render("{{upper .x}}", map[string]any{"x": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)

	out, err = Render(`{{default "none" .x}}`, map[string]any{"x": ""})
	require.NoError(t, err)
	assert.Equal(t, "none", out)
}

type sample struct {
	Title   string   `json:"title" description:"short title"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
	Nested  child    `json:"nested"`
	private string
}

type child struct {
	Count int `json:"count"`
}

func TestSchema(t *testing.T) {
	s := Schema(sample{})
	assert.Equal(t, "object", s["type"])
	assert.ElementsMatch(t, []string{"title", "score", "nested"}, s["required"])

	props := s["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, "short title", props["title"].(map[string]any)["description"])
	assert.Equal(t, "number", props["score"].(map[string]any)["type"])
	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, "string", tags["items"].(map[string]any)["type"])
	nested := props["nested"].(map[string]any)
	assert.Equal(t, "integer", nested["properties"].(map[string]any)["count"].(map[string]any)["type"])

	assert.Contains(t, JSONInstruction(sample{}), `"title"`)
}

func TestDecode(t *testing.T) {
	out, err := Decode[child]("t", "```json\n{\"count\": 3}\n```")
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)

	_, err = Decode[child]("t", "no json here")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.True(t, core.IsRetryable(err))

	_, err = Decode[child]("t", `{"count": "three"}`)
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))
}

type fakeGenerator struct {
	text string
	err  error
	last core.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req core.GenerateRequest) (core.Generation, error) {
	f.last = req
	if f.err != nil {
		return core.Generation{}, f.err
	}
	return core.Generation{Text: f.text}, nil
}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{text: `{"count": 7}`}
	out, err := Generate[child](context.Background(), gen, core.GenerateRequest{Task: "t", System: "You count."})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Count)
	assert.True(t, gen.last.JSON)
	assert.Contains(t, gen.last.System, "You count.")
	assert.Contains(t, gen.last.System, `"count"`)

	gen.err = core.Timeoutf("slow")
	_, err = Generate[child](context.Background(), gen, core.GenerateRequest{Task: "t"})
	assert.ErrorIs(t, err, core.ErrProviderTimeout)
}
