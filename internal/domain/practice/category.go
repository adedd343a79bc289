package practice

import (
	"math/rand/v2"
	"slices"
)

// Category groups GD topics.
type Category string

const (
	CategoryCurrentAffairs Category = "current_affairs"
	CategoryTechnology     Category = "technology"
	CategorySocialIssues   Category = "social_issues"
	CategoryBusiness       Category = "business"
	CategoryAbstract       Category = "abstract"
	CategoryCaseStudy      Category = "case_study"
)

// CategoryInfo is display metadata plus suggested topics.
type CategoryInfo struct {
	ID     Category `json:"id"`
	Label  string   `json:"label"`
	Color  string   `json:"color"`
	Emoji  string   `json:"emoji"`
	Topics []string `json:"topics"`
}

var categories = []CategoryInfo{
	{
		ID: CategoryCurrentAffairs, Label: "Current Affairs", Color: "#E05A47", Emoji: "📰",
		Topics: []string{
			"Is social media a boon or bane for democracy?",
			"Should AI be regulated by governments?",
			"Climate change: Individual vs collective responsibility",
			"Is remote work the future or a temporary trend?",
			"Should voting be made mandatory?",
		},
	},
	{
		ID: CategoryTechnology, Label: "Technology", Color: "#2E8B82", Emoji: "💻",
		Topics: []string{
			"Will AI replace human creativity?",
			"Is data privacy a myth in the digital age?",
			"Blockchain beyond cryptocurrency - practical applications",
			"Should coding be a mandatory school subject?",
			"Electric vehicles: Ready for mass adoption?",
		},
	},
	{
		ID: CategorySocialIssues, Label: "Social Issues", Color: "#3A7FD5", Emoji: "🤝",
		Topics: []string{
			"Is reservation system still relevant?",
			"Gender pay gap: Myth or reality?",
			"Should education be completely free?",
			"Mental health awareness in workplaces",
			"Is cancel culture beneficial for society?",
		},
	},
	{
		ID: CategoryBusiness, Label: "Business & Economy", Color: "#D4951E", Emoji: "📊",
		Topics: []string{
			"Startups vs corporate jobs - which is better?",
			"Should companies prioritize profit or social impact?",
			"Is globalization beneficial for developing nations?",
			"Gig economy: Exploitation or empowerment?",
			"Should cryptocurrency replace traditional banking?",
		},
	},
	{
		ID: CategoryAbstract, Label: "Abstract Topics", Color: "#8B5CF6", Emoji: "💡",
		Topics: []string{
			"Is perfection the enemy of progress?",
			"Does success require failure?",
			"Is competition necessary for growth?",
			"Knowledge is power - do you agree?",
			"Is there a thin line between confidence and arrogance?",
		},
	},
	{
		ID: CategoryCaseStudy, Label: "Case Study", Color: "#059669", Emoji: "📋",
		Topics: []string{
			"A company faces declining market share despite quality products",
			"Should a startup pivot or persist with its original idea?",
			"Balancing employee welfare with business profitability",
			"Expanding into international markets vs strengthening domestic presence",
			"Handling a PR crisis in the age of social media",
		},
	},
}

// Categories lists every category in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	for i, c := range categories {
		c.Topics = slices.Clone(c.Topics)
		out[i] = c
	}
	return out
}

// Info returns metadata for c.
func (c Category) Info() (CategoryInfo, bool) {
	for _, info := range categories {
		if info.ID == c {
			info.Topics = slices.Clone(info.Topics)
			return info, true
		}
	}
	return CategoryInfo{}, false
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	_, ok := c.Info()
	return ok
}

// Label returns the display label, or the raw id for unknown categories.
func (c Category) Label() string {
	if info, ok := c.Info(); ok {
		return info.Label
	}
	return string(c)
}

// RandomTopic picks a suggested topic of c, avoiding current when the
// category has more than one. ok is false for unknown categories.
func RandomTopic(c Category, current string, rng *rand.Rand) (topic string, ok bool) {
	info, found := c.Info()
	if !found || len(info.Topics) == 0 {
		return "", false
	}

	n := len(info.Topics)
	var idx int
	if rng != nil {
		idx = rng.IntN(n)
	} else {
		idx = rand.IntN(n)
	}
	if info.Topics[idx] == current && n > 1 {
		idx = (idx + 1) % n
	}
	return info.Topics[idx], true
}
