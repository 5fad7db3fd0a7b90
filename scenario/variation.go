package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/eloquence-ai/studio/types"
)

const variationVersion = "var_v1"

// AgentStyle is the adapted personality for one agent of the plan.
type AgentStyle struct {
	Persona string `json:"persona"`
	Style   string `json:"style"`
}

// Variations holds the deterministic per-user adaptations of a scenario.
type Variations struct {
	AdaptedContext string                `json:"adapted_context"`
	Vocabulary     []string              `json:"vocabulary"`
	Complexity     types.SkillLevel      `json:"complexity"`
	Agents         map[string]AgentStyle `json:"agents"`
	Openers        []string              `json:"openers"`
	Followups      []string              `json:"followups"`
	Pressure       string                `json:"pressure"`
	Techniques     []string              `json:"techniques"`
}

// variationEngine produces Variations locally, with a keyed in-process cache.
// No network calls; latency stays well under the plan budget.
type variationEngine struct {
	mu    sync.Mutex
	cache map[string]Variations
}

func newVariationEngine() *variationEngine {
	return &variationEngine{cache: make(map[string]Variations)}
}

// VariationKey hashes the identity the variations depend on. Interests are
// sorted so two profiles with the same set hash identically.
func VariationKey(scenarioID string, profile types.UserProfile) string {
	interests := append([]string(nil), profile.Interests...)
	sort.Strings(interests)

	payload, _ := json.Marshal(map[string]any{
		"scenario":  scenarioID,
		"user":      profile.UserID,
		"level":     string(profile.Skill),
		"interests": interests,
		"version":   variationVersion,
	})
	sum := sha256.Sum256(payload)
	return "var:" + hex.EncodeToString(sum[:])
}

// For computes (or recalls) the variations of def for the given profile.
func (e *variationEngine) For(def Definition, profile types.UserProfile) Variations {
	key := VariationKey(def.ID, profile)

	e.mu.Lock()
	if v, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	subject := profile.Subject
	if subject == "" {
		subject = "votre sujet"
	}

	v := Variations{
		AdaptedContext: fmt.Sprintf("%s adapté au sujet : %s", def.Title, subject),
		Vocabulary:     matchingVocabulary(profile.Interests, def.Objectives),
		Complexity:     def.Level,
		Agents:         agentStyles(def, profile.Style),
		Openers:        []string{fmt.Sprintf("Parlons de %s", subject)},
		Followups:      []string{"Pouvez-vous préciser ?", "Un exemple concret ?"},
		Pressure:       pressureFor(profile.Style),
		Techniques:     []string{"question répétée", "changement de sujet"},
	}

	e.mu.Lock()
	e.cache[key] = v
	e.mu.Unlock()
	return v
}

// matchingVocabulary keeps the interests that intersect scenario objectives.
func matchingVocabulary(interests, objectives []string) []string {
	var out []string
	for _, kw := range interests {
		lower := strings.ToLower(kw)
		for _, obj := range objectives {
			if strings.Contains(strings.ToLower(obj), lower) {
				out = append(out, kw)
				break
			}
		}
	}
	return out
}

func agentStyles(def Definition, style types.CoachingStyle) map[string]AgentStyle {
	out := make(map[string]AgentStyle, len(def.AgentIDs))
	for _, id := range def.AgentIDs {
		out[id] = AgentStyle{Persona: id, Style: string(style)}
	}
	return out
}

func pressureFor(style types.CoachingStyle) string {
	switch style {
	case types.StyleChallenging:
		return "high"
	case types.StyleSupportive:
		return "low"
	default:
		return "medium"
	}
}
