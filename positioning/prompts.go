package positioning

import "github.com/RHUDHRESH/Raptorflow-v1-sub003/internal/prompt"

// Generation tasks issued by this stage.
const (
	TaskDrama     = "positioning.drama"
	TaskOptions   = "positioning.options"
	TaskResonance = "positioning.resonance"
)

const systemStrategist = `You are a positioning strategist in the tradition of Ries and Trout.
Every business has an inherent drama: the emotional truth that makes it matter to customers.`

var dramaPrompt = prompt.New("drama", `
Business: {{.Business.Description}}{{if .Business.Name}} ({{.Business.Name}}){{end}}
Situation: {{default "(unknown)" .SOSTAC.Situation}}
Challenges: {{default "(unknown)" .SOSTAC.Challenges}}

State the inherent drama of this business in one sentence.`)

var optionsPrompt = prompt.New("options", `
Business: {{.Business.Description}}{{if .Business.Location}} in {{.Business.Location}}{{end}}
Inherent drama: {{.Drama}}
Objectives: {{default "(unknown)" .SOSTAC.Objectives}}

Words competitors already own:
{{range .Ladder}}- {{.Competitor}}: {{.WordOwned}} (strength {{printf "%.2f" .Strength}})
{{else}}- (none known)
{{end}}
Propose exactly 3 positioning options. Each needs a distinct word to own that no
competitor holds, a rationale, the category, how it differentiates, what the business
sacrifices, a remarkable element, the core creative idea, the customer promise, and
reasons to believe grounded in the research.{{if .Rejected}}
Do not reuse these words, they were duplicated in a previous attempt: {{join ", " .Rejected}}.{{end}}`)

const systemJudge = `You judge how strongly marketing positions resonate with the target audience.
Score each option between 0 and 1.`

var resonancePrompt = prompt.New("resonance", `
Business: {{.Business.Description}}
Audience and objectives: {{default "(unknown)" .SOSTAC.Objectives}}

Options:
{{range .Options}}{{.OptionNumber}}. "{{.WordToOwn}}": {{.CustomerPromise}}
{{end}}
Rate the resonance of every option.`)
