package practice

import "time"

// Quote is a motivational line for the dashboard.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

var quotes = []Quote{
	{"The art of communication is the language of leadership.", "James Humes"},
	{"Speak clearly, if you speak at all; carve every word before you let it fall.", "Oliver Wendell Holmes"},
	{"The more you practice, the better you get, the more freedom you have to create.", "Jocko Willink"},
	{"Communication works for those who work at it.", "John Powell"},
	{"Your voice is your superpower. Use it wisely.", "Unknown"},
	{"Great speakers are not born, they are trained.", "Dale Carnegie"},
	{"The only way to do great work is to love what you do.", "Steve Jobs"},
	{"Success is the sum of small efforts repeated day in and day out.", "Robert Collier"},
	{"What we think, we become. What we speak, we attract.", "Buddha"},
	{"A good discussion increases the dimensions of everyone who takes part.", "Randolph Bourne"},
	{"The tongue is the only instrument that gets sharper with use.", "Washington Irving"},
	{"Every expert was once a beginner.", "Helen Hayes"},
	{"Practice isn't the thing you do once you're good. It's what makes you good.", "Malcolm Gladwell"},
	{"Words are, of course, the most powerful drug used by mankind.", "Rudyard Kipling"},
	{"Confidence comes not from always being right but from not fearing to be wrong.", "Peter T. McIntyre"},
}

// DailyQuote rotates through the quotes by day of year, so everyone sees
// the same quote on a given calendar day in loc.
func DailyQuote(now time.Time, loc *time.Location) Quote {
	if loc == nil {
		loc = time.Local
	}
	return quotes[now.In(loc).YearDay()%len(quotes)]
}
