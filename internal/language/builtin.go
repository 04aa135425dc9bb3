package language

// Names of the built-in profiles.
const (
	NameEnglish = "english"
	NameSpanish = "spanish"
)

var englishWords = []string{
	"HELLO", "WORLD", "THE", "AND", "FOR", "ARE", "BUT", "NOT", "YOU", "ALL",
	"CAN", "HER", "WAS", "ONE", "OUR", "HAD", "HAVE", "SECRET", "MESSAGE",
	"THIS", "THAT", "WITH", "WILL", "FROM", "THEY", "KNOW", "ATTACK",
	"WANT", "BEEN", "GOOD", "MUCH", "SOME", "TIME", "VERY", "DATA",
	"WHEN", "COME", "HERE", "HOW", "JUST", "LIKE", "LONG", "PING",
	"MAKE", "MANY", "OVER", "SUCH", "TAKE", "THAN", "THEM", "ICMP",
	"WELL", "WERE", "PACKET", "NETWORK", "SECURITY", "CIPHER", "KEY",
}

var spanishWords = []string{
	"HOLA", "MUNDO", "EL", "LA", "DE", "QUE", "Y", "A", "EN", "UN", "ES", "SE", "NO", "TE", "LO",
	"LE", "DA", "SU", "POR", "SON", "CON", "PARA", "COMO", "ESTA", "ESTÁ", "TU", "PERO", "MAS", "MÁS",
	"UNA", "TIENE", "ME", "AHORA", "PRIMER", "TRES", "AÑOS", "MUCHO", "PORQUE", "CADA",
	"CASA", "VIDA", "OTROS", "NUEVO", "MISMO", "DESPUÉS", "HASTA", "DONDE", "OTRA", "CUANDO",
	"AQUÍ", "SOLO", "SIN", "ENTRE", "FORMA", "PAÍS", "GOBIERNO", "POLÍTICA", "PERSONA", "GRUPO",
	"TRABAJO", "LUGAR", "MOMENTO", "AGUA", "MANO", "PARTE", "DÍA", "NOCHE", "MENSAJE", "SECRETO",
	"ATAQUE", "CIFRADO", "CLAVE", "SEGURIDAD", "RED", "PAQUETE", "DATOS", "INFORMACIÓN",
}

// EnglishDefinition returns the definition of the built-in English profile.
func EnglishDefinition() Definition {
	return Definition{
		Name:      NameEnglish,
		Words:     append([]string(nil), englishWords...),
		WordBonus: 50,
		Patterns: []Pattern{
			{Text: "TH", Bonus: 10},
			{Text: "HE", Bonus: 10},
			{Text: "IN", Bonus: 10},
			{Text: "ER", Bonus: 10},
			{Text: "AN", Bonus: 10},
		},
		VowelWide:      Band{Min: 0.30, Max: 0.50, Bonus: 20},
		Unusual:        []string{"QQ", "XX", "ZZ", "JJ", "VV", "WW"},
		UnusualPenalty: 20,
		WordLength:     Band{Min: 3, Max: 7, Bonus: 10},
	}
}

// SpanishDefinition returns the definition of the built-in Spanish profile.
func SpanishDefinition() Definition {
	return Definition{
		Name:      NameSpanish,
		Words:     append([]string(nil), spanishWords...),
		WordBonus: 50,
		Patterns: []Pattern{
			{Text: "QU", Bonus: 15},
			{Text: "LL", Bonus: 10},
			{Text: "RR", Bonus: 10},
			{Text: "Ñ", Bonus: 5},
			{Text: "CH", Bonus: 8},
		},
		VowelNarrow: Band{Min: 0.40, Max: 0.55, Bonus: 25},
		VowelWide:   Band{Min: 0.35, Max: 0.60, Bonus: 15},
		Letters: []LetterThreshold{
			{Letter: "A", MinFreq: 0.11, Bonus: 10},
			{Letter: "E", MinFreq: 0.12, Bonus: 10},
			{Letter: "O", MinFreq: 0.08, Bonus: 8},
		},
		Unusual:        []string{"KK", "WW", "ZZ", "XX", "QQ"},
		UnusualPenalty: 15,
		WordLength:     Band{Min: 4, Max: 8, Bonus: 10},
	}
}

// English returns the built-in English profile.
func English() *Profile {
	return MustNew(EnglishDefinition())
}

// Spanish returns the built-in Spanish profile.
func Spanish() *Profile {
	return MustNew(SpanishDefinition())
}
