package agent

import "github.com/eloquence-ai/studio/types"

// Scripted French fallbacks. The addressed pools acknowledge the
// interpellation and always open with an accepted preamble.
var addressedFallbacks = map[string]map[types.InterpellationType]string{
	"michel_dubois_animateur": {
		types.InterpellationDirect:    "Oui, tout à fait, et c'est précisément le cœur de notre débat ce soir.",
		types.InterpellationIndirect:  "Effectivement, reprenons ce point ensemble, il mérite qu'on s'y arrête.",
		types.InterpellationMultiple:  "Oui, je vous suis, et je vais redistribuer la parole sur ce point.",
		types.InterpellationDirective: "Absolument, je recadre le débat tout de suite.",
	},
	"sarah_johnson_journaliste": {
		types.InterpellationDirect:    "Effectivement, c'est une question que je me posais aussi, j'y reviens avec des éléments précis.",
		types.InterpellationIndirect:  "Oui, d'un point de vue journalistique, le sujet soulève plusieurs questions.",
		types.InterpellationMultiple:  "Excellente question, laissez-moi y répondre en quelques mots.",
		types.InterpellationDirective: "Oui Michel, j'allais justement y venir.",
	},
	"marcus_thompson_expert": {
		types.InterpellationDirect:    "Absolument, le sujet mérite une analyse posée, je vous la livre en quelques points.",
		types.InterpellationIndirect:  "Effectivement, d'un point de vue technique, il y a plusieurs dimensions à considérer.",
		types.InterpellationMultiple:  "Oui, je complète volontiers ce qui vient d'être dit.",
		types.InterpellationDirective: "Oui, j'apporte l'éclairage technique tout de suite.",
	},
}

// Generic per-persona lines for generator failures outside interpellations.
var generationFallbacks = map[string]string{
	"michel_dubois_animateur":   "Très bien, poursuivons : qu'est-ce qui vous semble le plus important dans ce que nous venons d'entendre ?",
	"sarah_johnson_journaliste": "C'est un point intéressant, et j'aimerais qu'on le creuse davantage.",
	"marcus_thompson_expert":    "Sur le fond, la question est plus nuancée qu'elle n'en a l'air.",
}

const defaultAddressedFallback = "Oui, bien sûr, laissez-moi un instant pour y revenir."
const defaultGenerationFallback = "Effectivement, continuons sur ce point."

// addressedFallbackText picks a scripted answer for an addressed persona.
func addressedFallbackText(personaID string, evType types.InterpellationType) string {
	if pool, ok := addressedFallbacks[personaID]; ok {
		if text, ok := pool[evType]; ok {
			return text
		}
		if text, ok := pool[types.InterpellationDirect]; ok {
			return text
		}
	}
	return defaultAddressedFallback
}

// generationFallbackText picks the scripted answer for a failed generation.
func generationFallbackText(personaID string) string {
	if text, ok := generationFallbacks[personaID]; ok {
		return text
	}
	return defaultGenerationFallback
}
