package scenario

import (
	"encoding/json"
	"fmt"

	"github.com/RHUDHRESH/Raptorflow-v1-sub003/core"
	"github.com/RHUDHRESH/Raptorflow-v1-sub003/model"
)

// RestaurantDescription is the business used by the end-to-end scenario.
const RestaurantDescription = "Joe's Restaurant, restaurant, Austin TX, family-owned Italian restaurant, grow weekday dinner traffic, launch catering"

// RestaurantSubject is the subject id used with RestaurantDescription.
const RestaurantSubject = "joes-restaurant"

// Segment is one scripted customer segment with its sub-scores.
type Segment struct {
	Name          string
	Fit           float64
	Urgency       float64
	Accessibility float64
}

// RestaurantSegments are the six hypotheses the scenario generates. With the
// default weights the top three are Busy Parents, Date Night Couples and
// Office Lunch Teams.
var RestaurantSegments = []Segment{
	{"Busy Parents", 0.9, 0.8, 0.7},
	{"Date Night Couples", 0.8, 0.6, 0.8},
	{"Office Lunch Teams", 0.6, 0.7, 0.9},
	{"Students", 0.3, 0.5, 0.6},
	{"Retirees", 0.5, 0.3, 0.5},
	{"Event Planners", 0.7, 0.5, 0.4},
}

// RestaurantWords are the scripted words to own, in option order.
var RestaurantWords = []string{"Family", "Homemade", "Neighborhood"}

// Scripted replies of the scenario, exported so tests can vary one of them.
const (
	SOSTACReply = `{
  "situation": "Family-owned Italian restaurant in Austin competing with national chains for weekday dinner traffic",
  "objectives": "Grow weekday dinner covers by 20 percent and launch catering",
  "market_size": "Austin casual dining market estimated at 2.1 billion dollars",
  "positioning": "Neighborhood Italian kitchen with homemade pasta",
  "challenges": "Rising food costs and declining weekday dinner traffic"
}`

	CompetitorsReply = `{"competitors": [
  {"name": "Olive Garden", "positioning": "Family-style Italian chain", "pricing": "mid-range", "word_owned": "Unlimited breadsticks", "strength": 0.9},
  {"name": "Local Pizza Co", "pricing": "budget", "target_market": "students", "word_owned": "Speed", "strength": 0.6},
  {"name": "Trattoria Roma", "word_owned": "Authentic", "strength": 0.7}
]}`

	DramaReply = `{"inherent_drama": "Every plate is cooked the way Joe's grandmother cooked for her own family."}`

	OptionsReply = `{"options": [
  {"word_to_own": "Family", "rationale": "Three generations of family recipes", "category": "Italian casual dining",
   "differentiation": "A family kitchen, not a chain", "sacrifices": ["late night hours", "delivery apps"],
   "remarkable_element": "Grandmother's Sunday sauce served every weekday", "core_creative_idea": "Dinner at Joe's is dinner at home",
   "customer_promise": "Feel like family at every weekday dinner",
   "reasons_to_believe": ["Family-owned Italian restaurant in Austin since 1985", "Weekday family dinner traffic grows in Austin"]},
  {"word_to_own": "Homemade", "rationale": "Pasta made by hand each morning", "category": "Italian casual dining",
   "differentiation": "Fresh pasta against frozen chain menus", "sacrifices": ["menu breadth"],
   "remarkable_element": "Open pasta station", "core_creative_idea": "Watch your pasta being made",
   "customer_promise": "Pasta made this morning, for you",
   "reasons_to_believe": ["Customers complain chains serve frozen pasta"]},
  {"word_to_own": "Neighborhood", "rationale": "Regulars know the staff by name", "category": "Italian casual dining",
   "differentiation": "Local roots over national scale", "sacrifices": ["expansion"],
   "remarkable_element": "Regulars' wall of photos", "core_creative_idea": "Your table is waiting",
   "customer_promise": "A table that knows your name",
   "reasons_to_believe": ["Zebra crossings are painted quarterly"]}
]}`

	ResonanceReply = `{"scores": [
  {"option_number": 1, "resonance": 0.9},
  {"option_number": 2, "resonance": 0.7},
  {"option_number": 3, "resonance": 0.6}
]}`

	JTBDReply = `{"functional": "Get a real dinner on the table without cooking", "emotional": "Feel like a good host", "social": "Share an evening with people who matter"}`

	ValuePropReply = `{"transformation": "From rushed weeknight meals to relaxed family dinners", "benefits": ["fresh food", "fast seating"],
  "reason_to_believe": "Family recipes cooked daily", "differentiators": ["homemade pasta", "family owners"]}`

	TagsReply = `{"tags": ["#FamilyDinner", "austin eats", "Italian food", "weeknight dinner", "homemade pasta", "austin family", "date night", "kid friendly", "local restaurant"]}`
)

// ScriptRestaurant scripts every task of the three stages for the restaurant
// scenario. Per-segment tasks are answered by handlers keyed on the prompt's
// segment line so concurrent calls stay deterministic.
func (f *Mocks) ScriptRestaurant() {
	f.ScriptRestaurantResearch()
	f.ScriptRestaurantPositioning()
	f.ScriptRestaurantICP()
}

// ScriptRestaurantResearch scripts the research tasks and searches.
func (f *Mocks) ScriptRestaurantResearch() {
	f.Model.AddResponse("research.sostac", SOSTACReply)
	f.Model.AddResponse("research.competitors", CompetitorsReply)

	f.Searcher.AddMatch("market leaders",
		core.SearchResult{Title: "Olive Garden Austin", Snippet: "Unlimited breadsticks and family-style pasta from the national chain", URL: "https://example.com/olive-garden"},
		core.SearchResult{Title: "Local Pizza Co", Snippet: "Fast delivery speed across Austin", URL: "https://example.com/local-pizza"},
	)
	f.Searcher.AddMatch("competitors pricing",
		core.SearchResult{Title: "Olive Garden Austin", Snippet: "Unlimited breadsticks and family-style pasta from the national chain", URL: "https://example.com/olive-garden"},
		core.SearchResult{Title: "Austin Italian pricing guide", Snippet: "Mid-range entrees average 18 dollars", URL: "https://example.com/pricing"},
	)
	f.Searcher.AddMatch("industry analysis",
		core.SearchResult{Title: "Austin restaurant industry", Snippet: "Italian restaurants gain share as family dinner traffic returns", URL: "https://example.com/industry-1"},
		core.SearchResult{Title: "Casual dining outlook", Snippet: "Independent restaurants compete with national chains on experience", URL: "https://example.com/industry-2"},
		core.SearchResult{Title: "Food cost index", Snippet: "Rising food costs squeeze restaurant margins", URL: "https://example.com/industry-3"},
	)
	f.Searcher.AddMatch("pain points",
		core.SearchResult{Title: "Diner survey", Snippet: "Customers complain chains serve frozen pasta", URL: "https://example.com/pain-1"},
		core.SearchResult{Title: "Parent forum", Snippet: "Weeknight dinner with kids is rushed and stressful", URL: "https://example.com/pain-2"},
		core.SearchResult{Title: "Review digest", Snippet: "Long waits on weekend evenings", URL: "https://example.com/pain-3"},
	)
	f.Searcher.AddMatch("consumer trends",
		core.SearchResult{Title: "Dining trends", Snippet: "Weekday family dinner traffic grows in Austin", URL: "https://example.com/trend-1"},
		core.SearchResult{Title: "Catering demand", Snippet: "Office catering orders up 15 percent", URL: "https://example.com/trend-2"},
		core.SearchResult{Title: "Local first", Snippet: "Diners prefer independent family-owned Italian places", URL: "https://example.com/trend-3"},
	)
	f.Searcher.AddMatch("market size report",
		core.SearchResult{Title: "Austin casual dining market", Snippet: "Market estimated at 2.1 billion dollars", URL: "https://example.com/market-1"},
		core.SearchResult{Title: "Texas restaurant report", Snippet: "Full service segment growing 4 percent yearly", URL: "https://example.com/market-2"},
		core.SearchResult{Title: "Italian cuisine share", Snippet: "Italian is the second largest cuisine in Austin", URL: "https://example.com/market-3"},
	)
}

// ScriptRestaurantPositioning scripts the positioning tasks.
func (f *Mocks) ScriptRestaurantPositioning() {
	f.Model.AddResponse("positioning.drama", DramaReply)
	f.Model.AddResponse("positioning.options", OptionsReply)
	f.Model.AddResponse("positioning.resonance", ResonanceReply)
}

// ScriptRestaurantICP scripts the ICP tasks.
func (f *Mocks) ScriptRestaurantICP() {
	hyps := make([]map[string]string, len(RestaurantSegments))
	bySegment := make(map[string]Segment, len(RestaurantSegments))
	for i, s := range RestaurantSegments {
		hyps[i] = map[string]string{
			"name":        s.Name,
			"description": s.Name + " in Austin looking for Italian dinners",
			"rationale":   "Values a family table",
		}
		bySegment[s.Name] = s
	}
	f.Model.AddResponse("icp.hypotheses", mustJSON(map[string]any{"hypotheses": hyps}))

	f.Model.AddHandler("icp.persona", func(req model.Request) (string, error) {
		name := SegmentOf(req.Prompt)
		return mustJSON(map[string]any{
			"name":           name,
			"archetype":      "The " + name,
			"demographics":   map[string]any{"age": "30-45", "location": "Austin"},
			"psychographics": map[string]any{"values": "time together"},
			"behavior":       map[string]any{"dines_out": "weekly"},
			"quote":          fmt.Sprintf("As one of the %s, I want dinner to feel like home.", name),
		}), nil
	})
	f.Model.AddResponse("icp.jtbd", JTBDReply)
	f.Model.AddResponse("icp.value_prop", ValuePropReply)
	f.Model.AddHandler("icp.scores", func(req model.Request) (string, error) {
		s, ok := bySegment[SegmentOf(req.Prompt)]
		if !ok {
			return "", fmt.Errorf("unknown segment in prompt %q", req.Prompt)
		}
		return mustJSON(map[string]float64{"fit": s.Fit, "urgency": s.Urgency, "accessibility": s.Accessibility}), nil
	})
	f.Model.AddResponse("icp.tags", TagsReply)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
