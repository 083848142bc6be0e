package interpretation

import (
	"fmt"
	"strings"
)

// Static French texts for the last cascade layer. Keyed by the chart
// attributes so the fallback stays deterministic and never empty.

var signClimates = map[string]string{
	"Aries":       "Mois d'action et d'initiatives. Votre énergie est tournée vers le commencement, l'affirmation, la prise de décisions rapides. Période propice aux nouveaux départs.",
	"Taurus":      "Mois de stabilisation et d'ancrage. Vous recherchez le confort, la sécurité matérielle, les plaisirs sensoriels. Consolidez vos acquis, savourez le présent.",
	"Gemini":      "Mois de communication et de curiosité. Votre mental est stimulé, les échanges se multiplient. Période favorable aux apprentissages, aux connexions, à la flexibilité.",
	"Cancer":      "Mois d'introspection émotionnelle. Votre sensibilité est accrue, le besoin de cocooning se fait sentir. Prenez soin de vous et de vos proches, écoutez vos besoins affectifs.",
	"Leo":         "Mois de rayonnement et de créativité. Vous vous sentez en confiance, prêt à vous mettre en avant. Exprimez votre personnalité, osez briller, créez sans limites.",
	"Virgo":       "Mois d'organisation et de perfectionnement. Vous cherchez à optimiser votre quotidien, à améliorer vos routines. Focus sur l'efficacité, la santé, les détails pratiques.",
	"Libra":       "Mois d'harmonie relationnelle. Vous recherchez l'équilibre dans vos interactions, la beauté, la diplomatie. Privilégiez les collaborations, les compromis, l'esthétique.",
	"Scorpio":     "Mois de transformation intérieure. Vous plongez en profondeur, questionnez l'essentiel, lâchez ce qui ne sert plus. Période d'introspection intense, de régénération.",
	"Sagittarius": "Mois d'exploration et d'expansion. Votre soif d'apprendre, de découvrir, de comprendre est à son pic. Élargissez vos horizons mentaux ou physiques, philosophez.",
	"Capricorn":   "Mois de structuration et d'ambition. Vous construisez sur du solide, fixez des objectifs long terme. Discipline, patience et stratégie sont vos alliées.",
	"Aquarius":    "Mois d'innovation et d'indépendance. Vous pensez différemment, vous connectez à votre communauté, vous explorez des voies alternatives. Liberté et originalité dominent.",
	"Pisces":      "Mois d'intuition et de créativité. Votre sensibilité spirituelle est exacerbée, votre imaginaire foisonnant. Laissez-vous guider par vos ressentis, votre inspiration artistique.",
}

var houseFocuses = map[int]string{
	1:  "Votre identité personnelle est au centre. Mois de renouveau où vous vous réaffirmez, redéfinissez qui vous êtes. Votre présence, votre initiative sont décuplées.",
	2:  "Vos ressources matérielles et vos valeurs sont en lumière. Focus sur vos revenus, vos talents, votre estime personnelle. Période propice pour clarifier ce qui a de la valeur pour vous.",
	3:  "Communication, apprentissages et déplacements courts dominent. Votre mental est actif, les échanges avec votre entourage proche se multiplient.",
	4:  "Foyer, famille et racines émotionnelles appellent votre attention. Besoin de vous ressourcer chez vous, de renforcer vos bases affectives.",
	5:  "Créativité, plaisir et expression personnelle sont à l'honneur. Votre joie de vivre, votre spontanéité, votre désir de créer s'expriment librement.",
	6:  "Santé, travail quotidien et routines sont au cœur du mois. Vous optimisez votre quotidien, améliorez vos habitudes, vous occupez de votre bien-être.",
	7:  "Relations et partenariats sont mis en avant. Vos interactions one-to-one, vos associations, votre capacité à collaborer sont testées et affinées.",
	8:  "Transformation, intimité et ressources partagées occupent votre psyché. Mois de plongée profonde dans vos émotions. Régénération nécessaire.",
	9:  "Expansion mentale, voyages et quête de sens. Vous explorez de nouvelles philosophies, cultures, enseignements. Votre vision s'élargit.",
	10: "Carrière, ambitions publiques et reconnaissance sociale. Mois où votre image professionnelle est visible, où vos efforts peuvent porter leurs fruits.",
	11: "Amitiés, projets collectifs et idéaux. Votre réseau social, vos aspirations pour l'avenir, votre engagement dans des causes communes sont activés.",
	12: "Spiritualité, inconscient et besoin de retrait. Mois introspectif où vous vous reconnectez à votre dimension intérieure, méditez, lâchez prise.",
}

var houseAdvices = map[int]string{
	1:  "Réaffirmez qui vous êtes. Prenez une décision qui reflète votre véritable identité.",
	2:  "Évaluez vos ressources. Que pouvez-vous cultiver, développer, valoriser ?",
	3:  "Communiquez davantage. Apprenez, échangez, bougez localement.",
	4:  "Ressourcez-vous chez vous. Prenez soin de votre base émotionnelle.",
	5:  "Créez, jouez, exprimez-vous. Faites quelque chose qui vous procure de la joie.",
	6:  "Améliorez une routine. Prenez soin de votre corps, optimisez votre quotidien.",
	7:  "Renforcez une relation clé. Écoutez, collaborez, trouvez l'équilibre.",
	8:  "Libérez une émotion profonde. Transformez quelque chose d'interne.",
	9:  "Élargissez votre vision. Apprenez, voyagez, explorez de nouvelles philosophies.",
	10: "Avancez sur un objectif professionnel. Construisez votre carrière stratégiquement.",
	11: "Connectez-vous à votre réseau. Partagez vos idéaux, collaborez.",
	12: "Reposez-vous. Méditez, écoutez votre intuition, lâchez prise.",
}

const (
	genericClimate = "Nouveau cycle lunaire s'ouvre. Observez les thèmes récurrents de ce mois, ils révèlent vos priorités émotionnelles actuelles."
	genericFocus   = "Votre Lune éclaire un secteur spécifique de votre vie ce mois-ci. Observez où votre attention émotionnelle se porte naturellement."
	genericAdvice  = "Observez ce qui émerge naturellement ce mois-ci. Faites confiance à votre ressenti."
)

// hardcodedFallback synthesizes deterministic text from the chart facts.
// It succeeds for every input; this is the cascade's floor.
func hardcodedFallback(id Identity, facts Facts) string {
	switch id.Subject {
	case "climate":
		return climateText(facts.MoonSign)
	case "focus":
		return focusText(facts.MoonHouse)
	case "approach":
		return climateText(facts.LunarAscendant)
	case "full":
		parts := []string{
			"**Tonalité du mois :** " + climateText(facts.LunarAscendant),
			"**Focus lunaire :** " + focusText(facts.MoonHouse),
			"**Action concrète :** " + adviceText(facts.MoonHouse),
		}
		return strings.Join(parts, "\n\n")
	}

	// Natal subjects and anything unrecognized get a minimal generic text.
	label := subjectLabels[id.Subject]
	if label == "" {
		label = id.Subject
	}
	if facts.AscendantSign != "" {
		return fmt.Sprintf("Interprétation de %s, avec un Ascendant en %s. %s", label, facts.AscendantSign, genericAdvice)
	}
	return fmt.Sprintf("Interprétation de %s. %s", label, genericAdvice)
}

func climateText(sign string) string {
	if text, ok := signClimates[sign]; ok {
		return text
	}
	return genericClimate
}

func focusText(house int) string {
	if text, ok := houseFocuses[house]; ok {
		return text
	}
	return genericFocus
}

func adviceText(house int) string {
	if text, ok := houseAdvices[house]; ok {
		return text
	}
	return genericAdvice
}
