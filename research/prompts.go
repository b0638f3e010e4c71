package research

import "github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/prompt"

// Generation tasks issued by this stage.
const (
	TaskSOSTAC      = "research.sostac"
	TaskCompetitors = "research.competitors"
)

const systemAnalyst = `You are a senior marketing strategist preparing a SOSTAC situation analysis.
Be concrete and specific to the business. Leave a field empty rather than inventing data.`

var sostacPrompt = prompt.New("sostac", `
Analyze this business.

Name: {{default "(unnamed)" .Business.Name}}
Industry: {{default "(unknown)" .Business.Industry}}
Location: {{default "(unknown)" .Business.Location}}
Description: {{.Business.Description}}
Goals:
{{bullets .Business.Goals}}

Return the situation, objectives, market size estimate, current positioning and main challenges.`)

const systemCompetitors = `You are a competitive intelligence analyst. Using the search results provided,
identify the direct competitors of the business. For each, state the single word
or short phrase it owns in customers' minds and its market strength from 0 to 1.`

var competitorsPrompt = prompt.New("competitors", `
Business: {{.Business.Description}}{{if .Business.Location}} in {{.Business.Location}}{{end}}
Industry: {{default "(unknown)" .Business.Industry}}

Search results:
{{range .Results}}- {{.Title}}: {{.Snippet}} ({{.URL}})
{{else}}- (no results)
{{end}}
List the competitors with their positioning, pricing, target market, word owned and strength.`)
