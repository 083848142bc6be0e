package interpretation

import (
	"fmt"
	"strings"
)

var subjectLabels = map[string]string{
	"full":      "ta révolution lunaire",
	"climate":   "le climat émotionnel du mois",
	"focus":     "le focus du mois",
	"approach":  "ton approche du mois",
	"sun":       "ton Soleil",
	"moon":      "ta Lune",
	"ascendant": "ton Ascendant",
	"mercury":   "ton Mercure",
	"venus":     "ta Vénus",
	"mars":      "ton Mars",
}

var houseLabels = map[int]string{
	1:  "identité, apparence, nouveau départ",
	2:  "ressources personnelles, valeurs, sécurité matérielle",
	3:  "communication, apprentissage, environnement proche",
	4:  "foyer, famille, racines, bases émotionnelles",
	5:  "créativité, plaisir, expression personnelle",
	6:  "quotidien, santé, service, routines",
	7:  "relations, partenariats, collaboration",
	8:  "intimité, transformation, liens profonds",
	9:  "philosophie, voyages, expansion de conscience",
	10: "carrière, accomplissement social, visibilité",
	11: "projets collectifs, amitiés, idéaux",
	12: "spiritualité, inconscient, lâcher-prise",
}

// buildPrompt assembles the generation prompt from the chart facts. Structure
// and constraints mirror the presentation format the app renders; the length
// window is injected so the bounds stay a product decision.
func buildPrompt(id Identity, facts Facts, targetMin, targetMax, maxLen int) string {
	label := subjectLabels[id.Subject]
	if label == "" {
		label = id.Subject
	}

	var b strings.Builder
	b.WriteString("Tu es un·e astrologue moderne pour l'app Astroia. Ton rôle : éclairer, pas prédire. Ton style : concret, chaleureux, jamais mystique.\n\n")
	b.WriteString("DONNÉES DU THÈME:\n")

	switch facts.Kind {
	case KindNatalChart:
		fmt.Fprintf(&b, "- Thème natal, sujet : %s\n", label)
		if facts.AscendantSign != "" {
			fmt.Fprintf(&b, "- Ascendant en %s (filtre de perception général)\n", facts.AscendantSign)
		}
	default:
		fmt.Fprintf(&b, "- Révolution lunaire, sujet : %s\n", label)
		if facts.MoonSign != "" {
			fmt.Fprintf(&b, "- Lune en %s\n", facts.MoonSign)
		}
		if facts.MoonHouse > 0 {
			fmt.Fprintf(&b, "- Maison %d : %s\n", facts.MoonHouse, houseLabel(facts.MoonHouse))
		}
		if facts.LunarAscendant != "" {
			fmt.Fprintf(&b, "- Ascendant lunaire en %s\n", facts.LunarAscendant)
		}
		if facts.MoonPhase != "" {
			fmt.Fprintf(&b, "- Phase lunaire : %s\n", facts.MoonPhase)
		}
	}

	b.WriteString("\nCONTRAINTES STRICTES:\n")
	fmt.Fprintf(&b, "1. LONGUEUR: %d à %d caractères (max absolu %d). Compte tes caractères.\n", targetMin, targetMax, maxLen)
	b.WriteString("2. INTERDIT: \"tu es quelqu'un de...\", généralités vides.\n")
	b.WriteString("3. INTERDIT: Prédictions (\"tu vas rencontrer...\", \"il arrivera...\").\n")
	b.WriteString("4. INTERDIT: Conseils santé/diagnostic.\n")
	b.WriteString("5. OBLIGATOIRE: Croiser systématiquement les données du thème dans chaque section.\n")
	b.WriteString("6. TON: Présent ou infinitif. Jamais futur. Vocabulaire simple, moderne.\n")
	b.WriteString("7. FORMAT: Markdown strict, sections ## obligatoires.\n")

	lang := languageName(id.Lang)
	fmt.Fprintf(&b, "\nGÉNÈRE L'INTERPRÉTATION MAINTENANT (%s, markdown, %d-%d chars):", lang, targetMin, targetMax)
	return b.String()
}

// expandPrompt asks for a longer rewrite after a too-short generation.
func expandPrompt(prompt string, gotLen, targetMin, targetMax int) string {
	return fmt.Sprintf("%s\n\nATTENTION: Le texte précédent était trop court (%d chars). Développe davantage en gardant le même template, vise %d-%d caractères.",
		prompt, gotLen, targetMin, targetMax)
}

// reducePrompt asks for a shorter rewrite after a too-long generation.
func reducePrompt(prompt string, gotLen, targetMin, targetMax int) string {
	return fmt.Sprintf("%s\n\nATTENTION: Le texte précédent était trop long (%d chars). Réduis-le à %d-%d caractères en retirant les répétitions et en gardant l'essentiel.",
		prompt, gotLen, targetMin, targetMax)
}

func houseLabel(house int) string {
	if label, ok := houseLabels[house]; ok {
		return label
	}
	return "domaine de vie"
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "fr":
		return "français"
	case "en":
		return "anglais"
	case "es":
		return "espagnol"
	default:
		return code
	}
}
