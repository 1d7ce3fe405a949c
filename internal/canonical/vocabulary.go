package canonical

// Categories is the fixed category vocabulary books may be tagged with.
var Categories = []string{
	"fiction", "non-fiction", "sci-fi", "fantasy", "mystery", "thriller",
	"romance", "horror", "biography", "history", "science", "self-help",
	"business", "philosophy", "classic", "young-adult", "children",
}

// Moods is the fixed mood vocabulary books may be tagged with.
var Moods = []string{
	"inspiring", "relaxing", "thrilling", "thought-provoking", "funny",
	"heartwarming", "dark", "adventurous", "romantic", "educational",
	"cozy", "suspenseful", "uplifting",
}

func defaultCategorySynonyms() map[string][]string {
	return map[string][]string{
		"fiction":     {"novel", "literary", "story"},
		"non-fiction": {"nonfiction", "factual", "real events"},
		"sci-fi":      {"science fiction", "space", "futuristic", "technology", "dystopian"},
		"fantasy":     {"magic", "magical", "dragons", "epic", "mythical"},
		"mystery":     {"detective", "whodunit", "crime", "investigation", "puzzle"},
		"thriller":    {"suspense", "fast-paced", "tense", "gripping"},
		"romance":     {"love", "love story", "relationship", "romantic"},
		"horror":      {"scary", "frightening", "supernatural", "creepy"},
		"biography":   {"memoir", "life story", "autobiography"},
		"history":     {"historical", "past", "wartime", "ancient"},
		"science":     {"scientific", "research", "nature", "physics", "biology"},
		"self-help":   {"personal growth", "improvement", "habits", "productivity"},
		"business":    {"entrepreneurship", "management", "finance", "leadership"},
		"philosophy":  {"ideas", "ethics", "meaning", "wisdom"},
		"classic":     {"timeless", "canonical", "literature"},
		"young-adult": {"ya", "teen", "coming of age"},
		"children":    {"kids", "picture book", "bedtime"},
	}
}

func defaultMoodSynonyms() map[string][]string {
	return map[string][]string{
		"inspiring":         {"motivational", "uplifting", "encouraging"},
		"relaxing":          {"calm", "soothing", "easy reading", "gentle"},
		"thrilling":         {"exciting", "edge of your seat", "intense"},
		"thought-provoking": {"reflective", "deep", "challenging", "philosophical"},
		"funny":             {"humorous", "comedy", "witty", "lighthearted"},
		"heartwarming":      {"touching", "feel-good", "tender", "moving"},
		"dark":              {"grim", "bleak", "noir", "disturbing"},
		"adventurous":       {"adventure", "action", "journey", "quest", "daring"},
		"romantic":          {"love", "passionate", "swoony"},
		"educational":       {"informative", "learning", "instructive"},
		"cozy":              {"comforting", "warm", "gentle", "wholesome", "charming"},
		"suspenseful":       {"tense", "nail-biting", "gripping"},
		"uplifting":         {"hopeful", "positive", "joyful"},
	}
}
