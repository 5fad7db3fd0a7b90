package session

import "github.com/eloquence-ai/studio/types"

// Canonical exercise ids.
const (
	ExerciseDebateTV        = "studio_debate_tv"
	ExerciseJobInterview    = "studio_job_interview"
	ExerciseBoardroom       = "studio_boardroom"
	ExerciseSalesConference = "studio_sales_conference"
	ExerciseKeynote         = "studio_keynote"
)

// exerciseAliases maps every accepted room metadata value to a canonical id.
// The French camel-case forms come from the booking frontend.
var exerciseAliases = map[string]string{
	ExerciseDebateTV:            ExerciseDebateTV,
	"studio_situations_pro":     ExerciseDebateTV,
	"studio_debatPlateau":       ExerciseDebateTV,
	ExerciseJobInterview:        ExerciseJobInterview,
	"studio_entretienEmbauche":  ExerciseJobInterview,
	ExerciseBoardroom:           ExerciseBoardroom,
	"studio_reunionDirection":   ExerciseBoardroom,
	ExerciseSalesConference:     ExerciseSalesConference,
	"studio_conferenceVente":    ExerciseSalesConference,
	ExerciseKeynote:             ExerciseKeynote,
	"studio_conferencePublique": ExerciseKeynote,
}

// exerciseTemplates is the studio exercise catalogue. Only the TV debate
// runs the full three-persona ring; the others are reduced panels.
var exerciseTemplates = map[string]types.ExerciseTemplate{
	ExerciseDebateTV: {
		ID:   ExerciseDebateTV,
		Name: "Débat télévisé",
		PersonaIDs: []string{
			"michel_dubois_animateur",
			"sarah_johnson_journaliste",
			"marcus_thompson_expert",
		},
		Rules: types.InteractionRules{
			MaxSpeakingSeconds:   90,
			MinPauseMillis:       2000,
			InterruptionsAllowed: true,
		},
		TurnMode:   types.TurnModerated,
		MultiAgent: true,
	},
	ExerciseJobInterview: {
		ID:         ExerciseJobInterview,
		Name:       "Entretien d'embauche",
		PersonaIDs: []string{"michel_dubois_animateur"},
		Rules: types.InteractionRules{
			MaxSpeakingSeconds:   120,
			MinPauseMillis:       3000,
			InterruptionsAllowed: false,
		},
		TurnMode:   types.TurnSingle,
		MultiAgent: false,
	},
	ExerciseBoardroom: {
		ID:         ExerciseBoardroom,
		Name:       "Comité de direction",
		PersonaIDs: []string{"michel_dubois_animateur", "marcus_thompson_expert"},
		Rules: types.InteractionRules{
			MaxSpeakingSeconds:   120,
			MinPauseMillis:       2000,
			InterruptionsAllowed: true,
		},
		TurnMode:   types.TurnModerated,
		MultiAgent: true,
	},
	ExerciseSalesConference: {
		ID:         ExerciseSalesConference,
		Name:       "Conférence commerciale",
		PersonaIDs: []string{"sarah_johnson_journaliste", "marcus_thompson_expert"},
		Rules: types.InteractionRules{
			MaxSpeakingSeconds:   90,
			MinPauseMillis:       2000,
			InterruptionsAllowed: true,
		},
		TurnMode:   types.TurnRoundRobin,
		MultiAgent: true,
	},
	ExerciseKeynote: {
		ID:         ExerciseKeynote,
		Name:       "Keynote",
		PersonaIDs: []string{"michel_dubois_animateur"},
		Rules: types.InteractionRules{
			MaxSpeakingSeconds:   120,
			MinPauseMillis:       3000,
			InterruptionsAllowed: false,
		},
		TurnMode:   types.TurnSingle,
		MultiAgent: false,
	},
}

// exerciseScenario links each exercise to its scenario catalogue entry.
var exerciseScenario = map[string]string{
	ExerciseDebateTV:        "debate_ai",
	ExerciseJobInterview:    "job_interview",
	ExerciseBoardroom:       "boardroom",
	ExerciseSalesConference: "sales_conference",
	ExerciseKeynote:         "keynote",
}

// ResolveExercise maps a raw room metadata value to its template. Unknown
// values fall back to the TV debate; ok reports whether the value was
// recognized.
func ResolveExercise(exerciseType string) (types.ExerciseTemplate, bool) {
	canonical, ok := exerciseAliases[exerciseType]
	if !ok {
		return exerciseTemplates[ExerciseDebateTV], false
	}
	return exerciseTemplates[canonical], true
}
