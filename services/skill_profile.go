package services

import (
	"context"
	"sort"
	"strings"

	"tournament-rewards-system/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayName turns an internal identifier like "game_sense" or "PHYSICAL"
// into a human-readable label.
func displayName(identifier string) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(identifier), "_", " "))
}

// UserSkillProfile is the derived skill view for one user. It is never
// stored: the tournament engine and the assessment lifecycle each append to
// their own audit trails, and the current value is computed here on read.
type UserSkillProfile struct {
	UserID string                 `json:"user_id"`
	Skills []models.SkillSnapshot `json:"skills"`
}

// GetUserSkillProfile folds the user's tournament history through the
// progression calculator on top of the onboarding baseline, and sums the
// ledger for the raw point totals.
func (s *RewardService) GetUserSkillProfile(ctx context.Context, userID string) (*UserSkillProfile, error) {
	baselines, err := s.Store.BaselinesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.Store.SkillRewardsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	participations, err := s.Store.ParticipationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	tournamentIDs := make([]string, 0, len(participations))
	for _, p := range participations {
		tournamentIDs = append(tournamentIDs, p.TournamentID)
	}
	tournaments, err := s.Store.TournamentsByIDs(ctx, tournamentIDs)
	if err != nil {
		return nil, err
	}

	type skillState struct {
		baseline    float64
		hasBaseline bool
		category    models.SkillCategory
		value       float64
		totalPoints float64
		events      int
	}
	states := make(map[string]*skillState)

	state := func(name string) *skillState {
		st, ok := states[name]
		if !ok {
			st = &skillState{baseline: models.DefaultSkillBaseline, value: models.DefaultSkillBaseline}
			states[name] = st
		}
		return st
	}

	for _, b := range baselines {
		st := state(b.SkillName)
		st.baseline = b.Value
		st.hasBaseline = true
		st.category = b.Category
		st.value = b.Value
	}

	for _, row := range ledger {
		state(row.SkillName).totalPoints += row.PointsAwarded
	}

	// ParticipationsByUser is ordered by distributed_at, so folding in slice
	// order replays the user's tournament history.
	for _, p := range participations {
		t, ok := tournaments[p.TournamentID]
		if !ok {
			continue
		}
		for name := range p.SkillPoints {
			st := state(name)
			st.events++
			st.value = CalculateSkillProgression(st.baseline, p.Placement, t.TotalParticipants, st.events, 1.0)
		}
	}

	defaultPolicy := models.DefaultRewardPolicy()
	profile := &UserSkillProfile{UserID: userID}
	for name, st := range states {
		category := st.category
		if category == "" {
			if c, ok := defaultPolicy.CategoryFor(name); ok {
				category = c
			}
		}
		profile.Skills = append(profile.Skills, models.SkillSnapshot{
			SkillName:    name,
			Category:     category,
			Baseline:     st.baseline,
			CurrentValue: st.value,
			TotalPoints:  st.totalPoints,
			Tournaments:  st.events,
		})
	}
	sort.Slice(profile.Skills, func(i, j int) bool {
		return profile.Skills[i].SkillName < profile.Skills[j].SkillName
	})
	return profile, nil
}
