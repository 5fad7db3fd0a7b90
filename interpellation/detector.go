// Package interpellation detects when an utterance addresses one or more
// personas, directly or indirectly. Detection is pure and deterministic:
// no I/O, same input always yields the same events.
package interpellation

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

// Confidence levels per detection layer.
const (
	ConfidenceDirect    = 0.95
	ConfidenceIndirect  = 0.75
	ConfidenceDirective = 0.60
)

// roleLabels are the localized forms a role can be addressed by
// ("Journaliste, ..." as well as "votre point de vue, expert ?").
var roleLabels = map[types.Role][]string{
	types.RoleAnimator:   {"animateur", "l'animateur"},
	types.RoleJournalist: {"journaliste", "la journaliste"},
	types.RoleExpert:     {"expert", "l'expert"},
}

// generalQuestions are animator phrases that hand the floor to the panel
// without naming anyone; the least active persona is elected to answer.
var generalQuestions = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`qu['\s]?en pensez[- ]vous`,
	`que (?:répondez|dites)[- ]vous`,
	`comment (?:voyez|réagissez)[- ]vous`,
	`donnez[- ]nous votre (?:avis|réaction|point de vue)`,
	`votre avis à tous`,
	`votre position sur`,
	`qui souhaite (?:réagir|intervenir)`,
	`des réactions sur le plateau`,
}, "|"))

// moderationPhrases are animator steering formulas that invite the panel to
// keep the debate moving; they elect the least active persona like a
// general question does.
var moderationPhrases = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`revenons à`,
	`pour conclure`,
	`synthétisons`,
	`récapitulons`,
	`faisons le point`,
	`avant de continuer`,
	`creusons ce point`,
	`approfondissons`,
}, "|"))

// floorPhrases precede the addressee in an explicit hand-off
// ("à vous Sarah", "donnons la parole à Marcus").
const floorPhrases = `à vous|et vous|donnons la parole à|passons la parole à|la parole est à|écoutons|passons à`

// assignCues follow the addressee in an assignment
// ("journaliste, poursuivez", "Marcus, développez").
const assignCues = `poursuivez|continuez|développez|expliquez|précisez|je vous en prie|prenez la parole|c'est (?:à vous|votre tour)|votre (?:avis|opinion|point de vue|réaction|regard)|que (?:pensez|répondez|dites)[- ]vous|(?:pouvez|voulez|pourriez)[- ]vous`

// requestCues open a demand whose trailing vocative names the addressee
// ("donnez-nous votre point de vue, expert").
const requestCues = `avis|opinion|point de vue|réaction|regard|position|question|pensez[- ]vous|dites[- ]nous`

type personaPatterns struct {
	persona   types.Persona
	direct    []*regexp.Regexp
	indirect  []*regexp.Regexp
	directive []*regexp.Regexp
}

// Detector scans messages for persona addresses.
type Detector struct {
	patterns   []personaPatterns
	ringOrder  []string
	animatorID string
	logger     *zap.Logger
	now        func() time.Time
}

// NewDetector compiles the address patterns for every persona once at
// session start.
func NewDetector(personas []types.Persona, logger *zap.Logger) *Detector {
	d := &Detector{
		logger: logger.With(zap.String("component", "interpellation")),
		now:    time.Now,
	}

	for _, p := range personas {
		d.ringOrder = append(d.ringOrder, p.ID)
		if p.Role == types.RoleAnimator && d.animatorID == "" {
			d.animatorID = p.ID
		}

		pp := personaPatterns{persona: p}

		// Direct address: a name form immediately followed by address
		// punctuation, anywhere in the sentence ("Sarah, ..." as well as
		// "Et Marcus, votre expertise ?").
		firstName := strings.Fields(p.DisplayName)[0]
		nameForms := []string{
			regexp.QuoteMeta(p.DisplayName),
			regexp.QuoteMeta(firstName),
			`(?:monsieur|madame)\s+` + regexp.QuoteMeta(p.LastName()),
		}
		for _, form := range nameForms {
			pp.direct = append(pp.direct,
				regexp.MustCompile(`(?i)\b(`+form+`)\s*[,!?:]`))
		}
		// Role label anchored at sentence start.
		for _, label := range roleLabels[p.Role] {
			pp.direct = append(pp.direct,
				regexp.MustCompile(`(?i)(?:^|[.!?]\s+)(`+regexp.QuoteMeta(label)+`)\s*[,!?:]`))
		}

		for _, alias := range p.Aliases {
			pp.indirect = append(pp.indirect,
				regexp.MustCompile(`(?i)\b(`+regexp.QuoteMeta(alias)+`)\b`))
		}

		// Floor assignments only the animator can issue: the addressee is
		// any name or role form, with or without address punctuation.
		forms := make([]string, 0, len(nameForms)+len(roleLabels[p.Role]))
		forms = append(forms, nameForms...)
		for _, label := range roleLabels[p.Role] {
			forms = append(forms, regexp.QuoteMeta(label))
		}
		alt := strings.Join(forms, "|")
		pp.directive = []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:^|[\s,;.!?])(?:` + floorPhrases + `)[,\s]+(` + alt + `)\b`),
			regexp.MustCompile(`(?i)\b(` + alt + `)\b[,\s]*(?:justement|alors|donc|maintenant)?[,\s]*(?:` + assignCues + `)`),
			regexp.MustCompile(`(?i)(?:` + requestCues + `)[^.!?]*[,;:]\s*(` + alt + `)\s*(?:[.!?]|$)`),
		}

		d.patterns = append(d.patterns, pp)
	}

	return d
}

type match struct {
	persona  types.Persona
	position int
	phrase   string
}

// Detect returns the interpellation events for a message, in left-to-right
// order of the trigger phrases. Self-address is dropped. participation
// counts (utterances per persona this session) drive the least-active
// election for animator general questions; a nil map is allowed.
func (d *Detector) Detect(message, sourceSpeaker string, participation map[string]int) []types.InterpellationEvent {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	direct := d.scan(message, sourceSpeaker, func(pp personaPatterns) []*regexp.Regexp { return pp.direct })
	if len(direct) > 0 {
		evType := types.InterpellationDirect
		if len(direct) > 1 {
			evType = types.InterpellationMultiple
		}
		return d.events(message, sourceSpeaker, direct, evType, types.PriorityHigh, ConfidenceDirect)
	}

	indirect := d.scan(message, sourceSpeaker, func(pp personaPatterns) []*regexp.Regexp { return pp.indirect })
	if len(indirect) > 0 {
		return d.events(message, sourceSpeaker, indirect, types.InterpellationIndirect, types.PriorityMedium, ConfidenceIndirect)
	}

	if sourceSpeaker == d.animatorID {
		directive := d.scan(message, sourceSpeaker, func(pp personaPatterns) []*regexp.Regexp { return pp.directive })
		if len(directive) > 0 {
			return d.events(message, sourceSpeaker, directive, types.InterpellationDirective, types.PriorityMedium, ConfidenceDirective)
		}

		loc := generalQuestions.FindStringIndex(message)
		if loc == nil {
			loc = moderationPhrases.FindStringIndex(message)
		}
		if loc != nil {
			if target, ok := d.leastActive(sourceSpeaker, participation); ok {
				d.logger.Debug("animator hands the floor to the panel, electing least active persona",
					zap.String("persona_id", target),
				)
				return []types.InterpellationEvent{{
					Timestamp:     d.now(),
					SourceSpeaker: sourceSpeaker,
					Message:       message,
					PersonaID:     target,
					Type:          types.InterpellationDirective,
					Priority:      types.PriorityMedium,
					Confidence:    ConfidenceDirective,
					TriggerPhrase: message[loc[0]:loc[1]],
					Position:      loc[0],
				}}
			}
		}
	}

	return nil
}

// scan finds, for each persona except the source, the earliest pattern
// match in the message.
func (d *Detector) scan(message, sourceSpeaker string, pick func(personaPatterns) []*regexp.Regexp) []match {
	var out []match
	for _, pp := range d.patterns {
		if pp.persona.ID == sourceSpeaker {
			continue
		}
		best := -1
		phrase := ""
		for _, re := range pick(pp) {
			loc := re.FindStringSubmatchIndex(message)
			if loc == nil {
				continue
			}
			// group 1 is the name form itself
			start, end := loc[2], loc[3]
			if best == -1 || start < best {
				best = start
				phrase = message[start:end]
			}
		}
		if best >= 0 {
			out = append(out, match{persona: pp.persona, position: best, phrase: phrase})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].position < out[j].position })
	return out
}

func (d *Detector) events(message, source string, matches []match, evType types.InterpellationType, prio types.Priority, confidence float64) []types.InterpellationEvent {
	out := make([]types.InterpellationEvent, 0, len(matches))
	for _, m := range matches {
		out = append(out, types.InterpellationEvent{
			Timestamp:     d.now(),
			SourceSpeaker: source,
			Message:       message,
			PersonaID:     m.persona.ID,
			Type:          evType,
			Priority:      prio,
			Confidence:    confidence,
			TriggerPhrase: m.phrase,
			Position:      m.position,
		})
	}
	return out
}

// leastActive elects the persona with the fewest recorded utterances,
// excluding the source; ring order breaks ties.
func (d *Detector) leastActive(source string, participation map[string]int) (string, bool) {
	best := ""
	bestCount := -1
	for _, id := range d.ringOrder {
		if id == source {
			continue
		}
		count := participation[id]
		if bestCount == -1 || count < bestCount {
			best = id
			bestCount = count
		}
	}
	return best, best != ""
}
