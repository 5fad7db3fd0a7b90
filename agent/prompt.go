package agent

import (
	"fmt"
	"strings"

	"github.com/eloquence-ai/studio/generator"
	"github.com/eloquence-ai/studio/types"
)

// memoryDepth is how many trailing utterances feed the prompt.
const memoryDepth = 4

// UserContext carries the participant identity interpolated into prompts.
type UserContext struct {
	Name    string
	Subject string
}

// promptInput gathers everything one generation call depends on.
type promptInput struct {
	persona      types.Persona
	user         UserContext
	event        *types.InterpellationEvent
	history      []types.Utterance
	userMessage  string
	reaction     bool
	instruction  bool
	lastResponse string
	fewShot      []fewShotExchange
	tight        bool
	noMetaPrefix bool
	nameFor      func(speakerID string) string
}

type fewShotExchange struct {
	ask    string
	answer string
}

// buildMessages assembles the chat payload: system block, optional few-shot
// exchanges, recent history, then the user block.
func buildMessages(in promptInput) []generator.Message {
	system := interpolate(in.persona.SystemTemplate, in.user)

	if in.event != nil {
		system += fmt.Sprintf(
			"\n\nTu viens d'être interpellé (%s). Ta première phrase DOIT commencer par l'une de ces formules : %s.",
			in.event.TriggerPhrase,
			strings.Join(in.persona.Preambles, ", "),
		)
	}
	if in.tight {
		system += "\n\nRéponds en une seule phrase, directe et naturelle."
	}
	if in.noMetaPrefix {
		system += "\n\nRéponds directement, sans préfixe, sans ton nom, sans méta-commentaire."
	}

	messages := []generator.Message{{Role: "system", Content: system}}

	if !in.tight {
		for i, ex := range in.fewShot {
			if i >= 3 {
				break
			}
			messages = append(messages,
				generator.Message{Role: "user", Content: ex.ask},
				generator.Message{Role: "assistant", Content: ex.answer},
			)
		}

		for _, u := range in.history {
			if u.SpeakerID == in.persona.ID {
				messages = append(messages, generator.Message{Role: "assistant", Content: u.Text})
				continue
			}
			messages = append(messages, generator.Message{
				Role:    "user",
				Content: fmt.Sprintf("%s: %s", in.nameFor(u.SpeakerID), u.Text),
			})
		}
	}

	user := userBlock(in)
	if in.lastResponse != "" {
		excerpt := in.lastResponse
		if len(excerpt) > 100 {
			excerpt = excerpt[:100]
		}
		user += fmt.Sprintf("\n\nNe répète pas ta réponse précédente : « %s… »", excerpt)
	}
	return append(messages, generator.Message{Role: "user", Content: user})
}

func userBlock(in promptInput) string {
	if in.instruction {
		return in.userMessage
	}
	if in.reaction {
		return fmt.Sprintf(
			"Réagis très brièvement (20 mots maximum, une seule phrase) à ce qui vient d'être dit : « %s »",
			in.userMessage,
		)
	}
	name := in.user.Name
	if name == "" {
		name = "Participant"
	}
	return fmt.Sprintf("%s : %s", name, in.userMessage)
}

func interpolate(template string, user UserContext) string {
	name := user.Name
	if name == "" {
		name = "le participant"
	}
	subject := user.Subject
	if subject == "" {
		subject = "le sujet du jour"
	}
	out := strings.ReplaceAll(template, "{user_name}", name)
	return strings.ReplaceAll(out, "{user_subject}", subject)
}

// temperatureFor keeps generation parameters deterministic per role.
func temperatureFor(role types.Role) float64 {
	switch role {
	case types.RoleJournalist:
		return 0.8
	case types.RoleExpert:
		return 0.6
	default:
		return 0.7
	}
}
