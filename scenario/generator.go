// Package scenario builds adapted session plans: dynamic mid-session events,
// adaptation triggers and difficulty/uniqueness scoring, all computed locally
// with an optional KV-backed recency list.
package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/internal/kv"
	"github.com/eloquence-ai/studio/types"
)

const (
	// recentKeep bounds the per-scenario recency list used for uniqueness.
	recentKeep = 10

	// planTTL bounds how long a generated plan and the recency list stay hot.
	planTTL = 24 * time.Hour
)

// Generator produces a ScenarioPlan per session from the static catalogue,
// the user profile and the live performance snapshot.
type Generator struct {
	defs   map[string]Definition
	store  kv.Store
	vars   *variationEngine
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator wires the generator over the builtin catalogue.
func NewGenerator(store kv.Store, logger *zap.Logger) *Generator {
	return &Generator{
		defs:   BuiltinDefinitions(),
		store:  store,
		vars:   newVariationEngine(),
		logger: logger.With(zap.String("component", "scenario")),
		now:    time.Now,
	}
}

// Definition returns the static template for a scenario id.
func (g *Generator) Definition(scenarioID string) (Definition, bool) {
	def, ok := g.defs[scenarioID]
	return def, ok
}

// Variations returns the deterministic per-user adaptations for a template.
func (g *Generator) Variations(def Definition, profile types.UserProfile) Variations {
	return g.vars.For(def, profile)
}

// GeneratePlan assembles the adapted plan for one session.
func (g *Generator) GeneratePlan(
	ctx context.Context,
	scenarioID string,
	profile types.UserProfile,
	perf types.Performance,
) (types.ScenarioPlan, error) {
	def, ok := g.defs[scenarioID]
	if !ok {
		return types.ScenarioPlan{}, types.NewError(
			types.ErrExerciseUnknown,
			fmt.Sprintf("unknown scenario %q", scenarioID),
		)
	}

	if plan, ok := g.cachedPlan(ctx, def); ok {
		g.logger.Debug("adaptive plan served from cache",
			zap.String("plan_id", plan.ID),
			zap.String("scenario_id", def.ID),
		)
		return plan, nil
	}

	started := g.now()
	vars := g.vars.For(def, profile)
	events := dynamicEvents(def, perf)
	triggers := adaptationTriggers()
	difficulty := estimateDifficulty(def, vars, events)
	uniqueness := g.computeUniqueness(ctx, def)

	plan := types.ScenarioPlan{
		ID:                  fmt.Sprintf("adaptive_%s_%s", def.ID, started.Format("20060102_150405")),
		ScenarioID:          def.ID,
		Title:               def.Title + " (adaptatif)",
		Description:         describe(events),
		DurationMinutes:     def.DurationMinutes,
		AgentIDs:            append([]string(nil), def.AgentIDs...),
		DynamicEvents:       events,
		AdaptationTriggers:  triggers,
		EstimatedDifficulty: difficulty,
		UniquenessScore:     uniqueness,
		CreatedAt:           started,
	}

	g.cachePlan(ctx, def, plan)
	g.persistRecent(ctx, def, plan)

	g.logger.Info("adaptive plan generated",
		zap.String("plan_id", plan.ID),
		zap.String("title", plan.Title),
		zap.Float64("difficulty", plan.EstimatedDifficulty),
		zap.Float64("uniqueness", plan.UniquenessScore),
		zap.Int("events", len(plan.DynamicEvents)),
		zap.Int("triggers", len(plan.AdaptationTriggers)),
		zap.Duration("elapsed", g.now().Sub(started)),
	)
	return plan, nil
}

// dynamicEvents schedules mid-session perturbations. A clarifying question is
// always planned; escalation and support events depend on the live score.
func dynamicEvents(def Definition, perf types.Performance) []types.DynamicEvent {
	duration := def.DurationMinutes
	if duration <= 0 {
		duration = 10
	}

	events := []types.DynamicEvent{{
		Type:    "clarifying_question",
		WhenMin: max(1, duration/4),
		Impact:  "attention_shift",
	}}
	if perf.OverallScore > 0.8 {
		events = append(events, types.DynamicEvent{
			Type:    "fact_challenge",
			WhenMin: max(2, duration/3),
			Impact:  "precision_demand",
		})
	}
	if perf.OverallScore < 0.4 {
		events = append(events, types.DynamicEvent{
			Type:    "encouraging_nod",
			WhenMin: max(1, duration/5),
			Impact:  "confidence_boost",
		})
	}
	return events
}

func adaptationTriggers() []types.AdaptationTrigger {
	return []types.AdaptationTrigger{
		{
			Trigger:   "performance_drop",
			Condition: "overall_score<0.4",
			Action:    map[string]bool{"increase_support": true, "reduce_interruptions": true},
		},
		{
			Trigger:   "performance_peak",
			Condition: "overall_score>0.8",
			Action:    map[string]bool{"increase_challenge": true, "add_interruptions": true},
		},
		{
			Trigger:   "long_silence",
			Condition: "silence_seconds>10",
			Action:    map[string]bool{"provide_prompt": true},
		},
	}
}

// estimateDifficulty combines the level base, the mean agent style weight and
// a small bump per attention-demanding event, clamped to [0,1].
func estimateDifficulty(def Definition, vars Variations, events []types.DynamicEvent) float64 {
	base := 0.5
	switch def.Level {
	case types.SkillBeginner:
		base = 0.3
	case types.SkillAdvanced:
		base = 0.7
	}

	styleSum := 0.0
	for _, a := range vars.Agents {
		switch types.CoachingStyle(a.Style) {
		case types.StyleChallenging:
			styleSum += 0.2
		case types.StyleBalanced:
			styleSum += 0.05
		}
	}
	styleMean := styleSum / float64(max(1, len(vars.Agents)))

	eventWeight := 0.0
	for _, ev := range events {
		if ev.Impact == "attention_shift" || ev.Impact == "precision_demand" {
			eventWeight += 0.05
		}
	}

	d := base + styleMean + eventWeight
	if d > 1 {
		return 1
	}
	if d < 0 {
		return 0
	}
	return d
}

// recentEntry is what the recency list stores per generated plan.
type recentEntry struct {
	Title      string  `json:"title"`
	Duration   int     `json:"duration"`
	TS         string  `json:"ts"`
	Uniqueness float64 `json:"uniq"`
}

func recentKey(def Definition) string {
	return fmt.Sprintf("recent:%s:%s", def.ID, def.Title)
}

func planKey(def Definition) string {
	return fmt.Sprintf("plan:%s:%s:%d", def.ID, def.Title, def.DurationMinutes)
}

// cachedPlan returns the previously generated plan for the same
// (scenario, title, duration) tuple while it is still hot.
func (g *Generator) cachedPlan(ctx context.Context, def Definition) (types.ScenarioPlan, bool) {
	raw, err := g.store.Get(ctx, planKey(def))
	if err != nil {
		if !kv.IsMiss(err) {
			g.logger.Warn("plan cache read failed", zap.Error(err))
		}
		return types.ScenarioPlan{}, false
	}
	var plan types.ScenarioPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		g.logger.Warn("discarding corrupt cached plan", zap.Error(err))
		return types.ScenarioPlan{}, false
	}
	return plan, true
}

func (g *Generator) cachePlan(ctx context.Context, def Definition, plan types.ScenarioPlan) {
	payload, err := json.Marshal(plan)
	if err != nil {
		g.logger.Warn("failed to encode plan for cache", zap.Error(err))
		return
	}
	if err := g.store.SetEx(ctx, planKey(def), payload, planTTL); err != nil {
		g.logger.Warn("failed to cache plan", zap.Error(err))
	}
}

// computeUniqueness compares the plan against the last generated ones for the
// same scenario. Title identity weighs 0.6, duration identity 0.2.
func (g *Generator) computeUniqueness(ctx context.Context, def Definition) float64 {
	raw, err := g.store.Recent(ctx, recentKey(def), recentKeep)
	if err != nil || len(raw) == 0 {
		return 1.0
	}

	var sims []float64
	for _, item := range raw {
		var entry recentEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		sim := 0.0
		if entry.Title == def.Title {
			sim += 0.6
		}
		if entry.Duration == def.DurationMinutes {
			sim += 0.2
		}
		if sim > 1 {
			sim = 1
		}
		sims = append(sims, sim)
	}
	if len(sims) == 0 {
		return 1.0
	}

	sum := 0.0
	for _, s := range sims {
		sum += s
	}
	u := 1.0 - sum/float64(len(sims))
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

func (g *Generator) persistRecent(ctx context.Context, def Definition, plan types.ScenarioPlan) {
	payload, _ := json.Marshal(recentEntry{
		Title:      def.Title,
		Duration:   def.DurationMinutes,
		TS:         g.now().Format(time.RFC3339),
		Uniqueness: plan.UniquenessScore,
	})
	key := recentKey(def)
	if err := g.store.PushRecent(ctx, key, payload, recentKeep); err != nil {
		g.logger.Warn("failed to persist recent plan", zap.Error(err))
		return
	}
	if err := g.store.Expire(ctx, key, planTTL); err != nil {
		g.logger.Warn("failed to bound recency list", zap.Error(err))
	}
}

func describe(events []types.DynamicEvent) string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Type)
	}
	evText := "aucun"
	if len(names) > 0 {
		evText = strings.Join(names, ", ")
	}
	return fmt.Sprintf(
		"Scénario adaptatif généré automatiquement. Événements dynamiques prévus : %s. Le déroulé s'ajuste en fonction de vos performances en temps réel.",
		evText,
	)
}
