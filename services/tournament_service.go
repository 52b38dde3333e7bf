package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tournament-rewards-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrAlreadyDistributed = errors.New("rewards already distributed for tournament")
	ErrInvalidStandings   = errors.New("invalid standings payload")
)

// TournamentService owns the collaborator-facing write surface: result
// ingestion from the bracket service, reward policy attachment from
// operators, and skill baseline sync from onboarding. It never touches the
// participation, ledger or badge tables — those belong to RewardService.
type TournamentService struct {
	Store RewardStore
}

func NewTournamentService(store RewardStore) *TournamentService {
	return &TournamentService{Store: store}
}

// StandingEntry is one row of an ingested placement list.
type StandingEntry struct {
	UserID    string `json:"user_id"`
	Placement int    `json:"placement"`
}

// TournamentResults is the payload the bracket service pushes once a
// tournament finishes.
type TournamentResults struct {
	Name           string               `json:"name,omitempty"`
	Discipline     string               `json:"discipline,omitempty"`
	AutoDistribute bool                 `json:"auto_distribute,omitempty"`
	RewardPolicy   *models.RewardPolicy `json:"reward_policy,omitempty"`
	Standings      []StandingEntry      `json:"standings"`
}

func validateEntries(entries []StandingEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: empty placement list", ErrInvalidStandings)
	}
	seenUser := make(map[string]bool, len(entries))
	seenRank := make(map[int]bool, len(entries))
	for _, e := range entries {
		if e.UserID == "" {
			return fmt.Errorf("%w: entry with empty user_id", ErrInvalidStandings)
		}
		if e.Placement < 1 {
			return fmt.Errorf("%w: placement must be >= 1, got %d", ErrInvalidStandings, e.Placement)
		}
		if seenUser[e.UserID] {
			return fmt.Errorf("%w: duplicate user %s", ErrInvalidStandings, e.UserID)
		}
		if seenRank[e.Placement] {
			return fmt.Errorf("%w: duplicate placement %d", ErrInvalidStandings, e.Placement)
		}
		seenUser[e.UserID] = true
		seenRank[e.Placement] = true
	}
	return nil
}

// IngestResults records a completed tournament and its final standings,
// creating the tournament row if this service has not seen it before.
// Rejected once rewards are distributed: results are frozen at that point.
func (s *TournamentService) IngestResults(ctx context.Context, tournamentID string, results TournamentResults) (*models.Tournament, error) {
	if err := validateEntries(results.Standings); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	err := s.Store.Transact(ctx, func(tx RewardStore) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		switch {
		case errors.Is(err, ErrNotFound):
			name := results.Name
			if name == "" {
				name = tournamentID
			}
			t = &models.Tournament{
				ID:         tournamentID,
				Name:       name,
				Slug:       slug.Make(name),
				Discipline: results.Discipline,
			}
		case err != nil:
			return err
		}

		if t.Status == models.TournamentStatusRewardsDistributed {
			return fmt.Errorf("%w: %s", ErrAlreadyDistributed, tournamentID)
		}

		now := time.Now().UTC()
		t.Status = models.TournamentStatusCompleted
		t.EndTime = &now
		t.TotalParticipants = len(results.Standings)
		t.AutoDistribute = t.AutoDistribute || results.AutoDistribute
		if results.RewardPolicy != nil {
			if err := results.RewardPolicy.Validate(); err != nil {
				return err
			}
			t.RewardPolicy = results.RewardPolicy
		}
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}

		standings := make([]models.TournamentStanding, 0, len(results.Standings))
		for _, e := range results.Standings {
			standings = append(standings, models.TournamentStanding{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				UserID:       e.UserID,
				Placement:    e.Placement,
			})
		}
		if err := tx.ReplaceStandings(ctx, tournamentID, standings); err != nil {
			return err
		}

		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

// AttachRewardPolicy validates and attaches a policy to a tournament that
// has not been distributed yet. Unlike distribution-time fallback, a bad
// policy is rejected here so the operator gets immediate feedback.
func (s *TournamentService) AttachRewardPolicy(ctx context.Context, tournamentID string, policy models.RewardPolicy) (*models.Tournament, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	var tournament *models.Tournament
	err := s.Store.Transact(ctx, func(tx RewardStore) error {
		t, err := tx.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if t.Status == models.TournamentStatusRewardsDistributed {
			return fmt.Errorf("%w: %s", ErrAlreadyDistributed, tournamentID)
		}
		t.RewardPolicy = &policy
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}
		tournament = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

// BaselineEntry is one onboarding skill baseline for sync.
type BaselineEntry struct {
	SkillName string               `json:"skill_name"`
	Category  models.SkillCategory `json:"category"`
	Value     float64              `json:"value"`
}

// SyncBaselines upserts a user's onboarding skill baselines.
func (s *TournamentService) SyncBaselines(ctx context.Context, userID string, entries []BaselineEntry) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user_id", ErrInvalidStandings)
	}
	baselines := make([]models.UserSkillBaseline, 0, len(entries))
	for _, e := range entries {
		if e.SkillName == "" {
			return fmt.Errorf("baseline entry with empty skill name")
		}
		if !models.ValidSkillCategory(e.Category) {
			return fmt.Errorf("baseline %q: unknown category %q", e.SkillName, e.Category)
		}
		if e.Value < models.MinSkillValue || e.Value > models.MaxSkillCap {
			return fmt.Errorf("baseline %q: value %v out of [%v, %v]",
				e.SkillName, e.Value, models.MinSkillValue, models.MaxSkillCap)
		}
		baselines = append(baselines, models.UserSkillBaseline{
			ID:        uuid.NewString(),
			UserID:    userID,
			SkillName: e.SkillName,
			Category:  e.Category,
			Value:     e.Value,
		})
	}
	return s.Store.UpsertBaselines(ctx, baselines)
}
