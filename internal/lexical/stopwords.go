package lexical

// Headlines arrive in English, Spanish and Catalan, so the list covers all three.
// Only words of three or more characters matter; shorter ones are dropped anyway.
var stopWords = toSet([]string{
	// English
	"the", "and", "for", "with", "from", "into", "onto", "over", "under", "after", "before",
	"about", "than", "then", "that", "this", "these", "those", "there", "their", "they",
	"them", "what", "when", "where", "which", "who", "whom", "why", "how", "will", "would",
	"can", "could", "should", "shall", "may", "might", "must", "has", "have", "had", "was",
	"were", "are", "been", "being", "its", "his", "her", "hers", "our", "ours", "your",
	"yours", "not", "but", "nor", "yet", "all", "any", "some", "more", "most", "other",
	"such", "only", "own", "same", "too", "very", "just", "also", "new", "via", "per",
	"out", "off", "now", "says", "said", "amid", "upon", "while", "during", "again",
	// Spanish
	"los", "las", "del", "una", "uno", "unos", "unas", "por", "para", "con", "sin", "sobre",
	"entre", "como", "más", "pero", "que", "qué", "sus", "este", "esta", "estos", "estas",
	"ese", "esa", "esos", "esas", "desde", "hasta", "tras", "ante", "bajo", "según", "han",
	"hay", "fue", "son", "ser", "está", "están", "nuevo", "nueva",
	// Catalan
	"els", "les", "amb", "per", "dels", "una", "uns", "unes", "són", "està", "però", "més",
	"aquest", "aquesta", "aquests", "aquestes", "sobre", "entre", "fins", "des", "nou", "nova",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
