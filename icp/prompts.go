package icp

import "github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/prompt"

// Generation tasks issued by this stage.
const (
	TaskHypotheses = "icp.hypotheses"
	TaskPersona    = "icp.persona"
	TaskJTBD       = "icp.jtbd"
	TaskValueProp  = "icp.value_prop"
	TaskScores     = "icp.scores"
	TaskTags       = "icp.tags"
)

// SegmentMarker prefixes the segment line of every per-persona prompt.
const SegmentMarker = "Segment: "

const systemResearcher = `You are a customer research lead building ideal customer profiles for a
positioning strategy. Be specific and grounded in the business context.`

var hypothesesPrompt = prompt.New("hypotheses", `
Business: {{.Business.Description}}{{if .Business.Location}} in {{.Business.Location}}{{end}}
Positioning: own the word "{{.Option.WordToOwn}}"
Customer promise: {{.Option.CustomerPromise}}
Rationale: {{.Option.Rationale}}

Propose between 5 and 7 distinct customer segment hypotheses that this positioning wins.`)

var personaPrompt = prompt.New("persona", `
Segment: {{.Hypothesis.Name}}
Segment description: {{.Hypothesis.Description}}
Business: {{.Business.Description}}
Positioning: "{{.Option.WordToOwn}}"

Describe this segment as a persona with demographics, psychographics, behavior and one
characteristic quote.`)

var jtbdPrompt = prompt.New("jtbd", `
Segment: {{.Persona.Name}}
Persona quote: "{{.Persona.Quote}}"
Business: {{.Business.Description}}

Map the functional, emotional and social jobs this persona hires the business for.`)

var valuePropPrompt = prompt.New("value_prop", `
Segment: {{.Persona.Name}}
Jobs: {{.Persona.JTBD.Functional}} / {{.Persona.JTBD.Emotional}} / {{.Persona.JTBD.Social}}
Positioning: "{{.Option.WordToOwn}}" because {{.Option.Rationale}}
Differentiation: {{.Option.Differentiation}}

Define the value proposition: transformation, benefits, reason to believe and differentiators.`)

var scoresPrompt = prompt.New("scores", `
Segment: {{.Persona.Name}}
Persona quote: "{{.Persona.Quote}}"
Value proposition: {{.Persona.ValueProp.Transformation}}
Positioning: "{{.Option.WordToOwn}}"

Score from 0 to 1 how well the segment fits the positioning, how urgent its need is,
and how accessible it is to reach.`)

var tagsPrompt = prompt.New("tags", `
Segment: {{.Persona.Name}}
Profile: {{.Profile}}

List 8 to 10 short keywords or hashtags to monitor conversations of this segment.`)
