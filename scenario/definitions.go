package scenario

import "github.com/eloquence-ai/studio/types"

// Definition is a static scenario template the generator adapts per session.
type Definition struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	DurationMinutes int              `json:"duration_minutes"`
	Level           types.SkillLevel `json:"level"`
	Objectives      []string         `json:"objectives"`
	AgentIDs        []string         `json:"agent_ids"`
}

// BuiltinDefinitions returns the studio scenario catalogue.
func BuiltinDefinitions() map[string]Definition {
	defs := []Definition{
		{
			ID:              "debate_ai",
			Title:           "Débat télévisé en direct",
			DurationMinutes: 12,
			Level:           types.SkillIntermediate,
			Description:     "Plateau de débat avec animateur, journaliste et expert.",
			Objectives:      []string{"argumentation", "gestion des interruptions", "leadership", "technologie"},
			AgentIDs: []string{
				"michel_dubois_animateur",
				"sarah_johnson_journaliste",
				"marcus_thompson_expert",
			},
		},
		{
			ID:              "job_interview",
			Title:           "Entretien d'embauche",
			DurationMinutes: 10,
			Level:           types.SkillBeginner,
			Description:     "Entretien mené par un recruteur exigeant.",
			Objectives:      []string{"présentation de soi", "motivation", "gestion du stress"},
			AgentIDs:        []string{"michel_dubois_animateur"},
		},
		{
			ID:              "boardroom",
			Title:           "Comité de direction",
			DurationMinutes: 15,
			Level:           types.SkillAdvanced,
			Description:     "Défense d'un projet devant un comité de direction.",
			Objectives:      []string{"synthèse", "chiffres clés", "conviction", "stratégie"},
			AgentIDs:        []string{"michel_dubois_animateur", "marcus_thompson_expert"},
		},
		{
			ID:              "sales_conference",
			Title:           "Conférence commerciale",
			DurationMinutes: 10,
			Level:           types.SkillIntermediate,
			Description:     "Pitch produit face à des prospects sceptiques.",
			Objectives:      []string{"pitch", "objections", "closing"},
			AgentIDs:        []string{"sarah_johnson_journaliste", "marcus_thompson_expert"},
		},
		{
			ID:              "keynote",
			Title:           "Keynote de lancement",
			DurationMinutes: 8,
			Level:           types.SkillAdvanced,
			Description:     "Discours d'ouverture devant un large public.",
			Objectives:      []string{"storytelling", "rythme", "présence scénique"},
			AgentIDs:        []string{"michel_dubois_animateur"},
		},
	}

	out := make(map[string]Definition, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}
