package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"tournament-rewards-system/models"

	"github.com/google/uuid"
)

// Validation errors surfaced before any write.
var (
	ErrTournamentNotCompleted = errors.New("tournament is not in a completed state")
	ErrNoStandings            = errors.New("tournament has no final standings")
	ErrDuplicateParticipant   = errors.New("duplicate user in final standings")
)

// DistributionSummary is the tournament-level aggregate returned by both
// distribution and preview. An idempotent no-op reports the prior totals
// with RewardsDistributedCount = 0.
type DistributionSummary struct {
	TournamentID            string              `json:"tournament_id"`
	RewardsDistributedCount int                 `json:"rewards_distributed_count"`
	TotalXPAwarded          int64               `json:"total_xp_awarded"`
	TotalCreditsAwarded     int64               `json:"total_credits_awarded"`
	TotalBadgesAwarded      int                 `json:"total_badges_awarded"`
	DistributedAt           time.Time           `json:"distributed_at"`
	AlreadyDistributed      bool                `json:"already_distributed,omitempty"`
	Forced                  bool                `json:"forced,omitempty"`
	Preview                 bool                `json:"preview,omitempty"`
	Participants            []ParticipantReward `json:"participants,omitempty"`
}

// ParticipantReward is the per-user detail inside a summary.
type ParticipantReward struct {
	UserID          string             `json:"user_id"`
	Placement       int                `json:"placement"`
	BaseXP          int64              `json:"base_xp"`
	BonusXP         int64              `json:"bonus_xp"`
	TotalXP         int64              `json:"total_xp"`
	Credits         int64              `json:"credits"`
	SkillPoints     map[string]float64 `json:"skill_points"`
	Badges          []string           `json:"badges,omitempty"`
	ProjectedSkills map[string]float64 `json:"projected_skills,omitempty"` // preview only
	Skipped         bool               `json:"skipped,omitempty"`
	Overwritten     bool               `json:"overwritten,omitempty"`
}

// UserTournamentReward is the read-side view of one user's outcome.
type UserTournamentReward struct {
	Participation *models.TournamentParticipation `json:"participation"`
	Badges        []models.Badge                  `json:"badges"`
}

// BadgeShowcaseSection groups a user's badges by category.
type BadgeShowcaseSection struct {
	Category    string         `json:"category"`
	DisplayName string         `json:"display_name"`
	Badges      []models.Badge `json:"badges"`
}

// BadgeShowcase is the grouped badge view for a user profile page.
type BadgeShowcase struct {
	UserID      string                 `json:"user_id"`
	TotalBadges int                    `json:"total_badges"`
	Sections    []BadgeShowcaseSection `json:"sections"`
}

// RewardService coordinates the distributor, the progression calculator and
// the badge engine per participant, and owns every write to the
// participation, ledger and badge tables.
type RewardService struct {
	Store RewardStore
}

func NewRewardService(store RewardStore) *RewardService {
	return &RewardService{Store: store}
}

// rewardComputation is the pure per-participant outcome, shared by the
// distribution and preview paths.
type rewardComputation struct {
	Tier        models.PlacementTier
	SkillPoints map[string]float64
	BaseXP      int64
	BonusXP     int64
	TotalXP     int64
	Credits     int64
	TierBadge   *models.BadgeSpec
}

func computeReward(policy models.RewardPolicy, placement int) rewardComputation {
	tier := policy.TierFor(placement)

	baseXP := int64(math.Round(float64(policy.ParticipationDefaults.BaseXP) * tier.XPMultiplier))
	points := DistributeSkillPoints(tier.SkillPointPool, policy.SkillMappings)

	var bonusXP int64
	for name, pts := range points {
		category, ok := policy.CategoryFor(name)
		if !ok {
			continue
		}
		bonusXP += int64(math.Round(pts * float64(models.CategoryXPRates[category])))
	}

	return rewardComputation{
		Tier:        tier,
		SkillPoints: points,
		BaseXP:      baseXP,
		BonusXP:     bonusXP,
		TotalXP:     baseXP + bonusXP,
		Credits:     tier.Credits,
		TierBadge:   tier.Badge,
	}
}

// resolvePolicy loads the tournament's policy, substituting the system
// default when it is missing or malformed. Soft recovery: logged, not fatal.
func resolvePolicy(t *models.Tournament) models.RewardPolicy {
	if t.RewardPolicy == nil {
		log.Printf("[REWARDS] tournament %s has no reward policy, using default", t.ID)
		return models.DefaultRewardPolicy()
	}
	if err := t.RewardPolicy.Validate(); err != nil {
		log.Printf("[REWARDS] tournament %s has a malformed reward policy (%v), using default", t.ID, err)
		return models.DefaultRewardPolicy()
	}
	return *t.RewardPolicy
}

func validateStandings(standings []models.TournamentStanding) error {
	if len(standings) == 0 {
		return ErrNoStandings
	}
	seen := make(map[string]bool, len(standings))
	for _, st := range standings {
		if seen[st.UserID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, st.UserID)
		}
		seen[st.UserID] = true
	}
	return nil
}

// DistributeRewards runs the full distribution for a completed tournament as
// one all-or-nothing transaction. Re-invoking it without force is a no-op
// reporting the prior totals; force overwrites existing participations in
// place (ledger corrections are appended, never edited).
func (s *RewardService) DistributeRewards(ctx context.Context, tournamentID string, force bool, actor string) (*DistributionSummary, error) {
	var summary *DistributionSummary

	err := s.Store.Transact(ctx, func(tx RewardStore) error {
		t, err := tx.TournamentForUpdate(ctx, tournamentID)
		if err != nil {
			return err
		}

		switch t.Status {
		case models.TournamentStatusCompleted:
		case models.TournamentStatusRewardsDistributed:
			if !force {
				prior, perr := s.priorSummary(ctx, tx, t)
				if perr != nil {
					return perr
				}
				summary = prior
				return nil
			}
		default:
			return fmt.Errorf("%w: tournament %s is %q", ErrTournamentNotCompleted, t.ID, t.Status)
		}

		standings, err := tx.StandingsFor(ctx, t.ID)
		if err != nil {
			return err
		}
		if err := validateStandings(standings); err != nil {
			return err
		}

		policy := resolvePolicy(t)

		existing, err := tx.ParticipationsFor(ctx, t.ID)
		if err != nil {
			return err
		}
		existingByUser := make(map[string]*models.TournamentParticipation, len(existing))
		for i := range existing {
			existingByUser[existing[i].UserID] = &existing[i]
		}

		now := time.Now().UTC()
		sum := &DistributionSummary{
			TournamentID:  t.ID,
			DistributedAt: now,
			Forced:        force,
		}

		for _, st := range standings {
			prior, had := existingByUser[st.UserID]
			if had && !force {
				sum.Participants = append(sum.Participants, ParticipantReward{
					UserID:    st.UserID,
					Placement: st.Placement,
					Skipped:   true,
				})
				continue
			}

			comp := computeReward(policy, st.Placement)
			part := &models.TournamentParticipation{
				ID:            uuid.NewString(),
				UserID:        st.UserID,
				TournamentID:  t.ID,
				Placement:     st.Placement,
				SkillPoints:   comp.SkillPoints,
				BaseXP:        comp.BaseXP,
				BonusXP:       comp.BonusXP,
				TotalXP:       comp.TotalXP,
				Credits:       comp.Credits,
				DistributedAt: now,
				DistributedBy: actor,
			}

			if had {
				part.ID = prior.ID
				if err := tx.UpsertParticipation(ctx, part); err != nil {
					return err
				}
				// The prior allocation stays in the ledger; redistribution
				// appends offsetting rows so the sums reflect the new state.
				if err := tx.AppendSkillRewards(ctx, offsetLedgerRows(prior, now)); err != nil {
					return err
				}
			} else {
				if err := tx.CreateParticipation(ctx, part); err != nil {
					return err
				}
			}

			if err := tx.AppendSkillRewards(ctx, ledgerRows(st.UserID, t.ID, comp.SkillPoints)); err != nil {
				return err
			}

			present, err := tx.BadgeTypesFor(ctx, t.ID, st.UserID)
			if err != nil {
				return err
			}
			badges := AssignBadges(st.UserID, t.ID, st.Placement, comp.TierBadge, present)
			if err := tx.CreateBadges(ctx, badges); err != nil {
				return err
			}

			badgeTypes := make([]string, 0, len(badges))
			for _, b := range badges {
				badgeTypes = append(badgeTypes, b.BadgeType)
			}

			sum.RewardsDistributedCount++
			sum.TotalXPAwarded += comp.TotalXP
			sum.TotalCreditsAwarded += comp.Credits
			sum.TotalBadgesAwarded += len(badges)
			sum.Participants = append(sum.Participants, ParticipantReward{
				UserID:      st.UserID,
				Placement:   st.Placement,
				BaseXP:      comp.BaseXP,
				BonusXP:     comp.BonusXP,
				TotalXP:     comp.TotalXP,
				Credits:     comp.Credits,
				SkillPoints: comp.SkillPoints,
				Badges:      badgeTypes,
				Overwritten: had,
			})
		}

		t.Status = models.TournamentStatusRewardsDistributed
		t.TotalParticipants = len(standings)
		t.RewardsDistributedAt = &now
		t.RewardsDistributedBy = actor
		if err := tx.SaveTournament(ctx, t); err != nil {
			return err
		}

		summary = sum
		return nil
	})
	if err != nil {
		// A write that raced past the row lock trips the unique constraint on
		// (user_id, tournament_id); treat it as "already distributed" rather
		// than erroring — the competing call owns the persisted state.
		if errors.Is(err, ErrDuplicate) {
			log.Printf("[REWARDS] concurrent distribution detected for tournament %s, returning existing result", tournamentID)
			return s.alreadyDistributed(ctx, tournamentID)
		}
		return nil, err
	}

	if summary.RewardsDistributedCount > 0 {
		log.Printf("✅ [REWARDS] tournament %s: distributed to %d participants (%d XP, %d credits, %d badges)",
			tournamentID, summary.RewardsDistributedCount, summary.TotalXPAwarded,
			summary.TotalCreditsAwarded, summary.TotalBadgesAwarded)
	}
	return summary, nil
}

// PreviewRewards runs the same computation as DistributeRewards without
// persisting anything, for operator review before commit. The projected
// skill values show where each participant's profile would land.
func (s *RewardService) PreviewRewards(ctx context.Context, tournamentID string) (*DistributionSummary, error) {
	t, err := s.Store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TournamentStatusCompleted && t.Status != models.TournamentStatusRewardsDistributed {
		return nil, fmt.Errorf("%w: tournament %s is %q", ErrTournamentNotCompleted, t.ID, t.Status)
	}

	standings, err := s.Store.StandingsFor(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := validateStandings(standings); err != nil {
		return nil, err
	}

	policy := resolvePolicy(t)

	existing, err := s.Store.ParticipationsFor(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	existingUsers := make(map[string]bool, len(existing))
	for _, p := range existing {
		existingUsers[p.UserID] = true
	}

	sum := &DistributionSummary{
		TournamentID:  tournamentID,
		DistributedAt: time.Now().UTC(),
		Preview:       true,
	}
	total := len(standings)

	for _, st := range standings {
		comp := computeReward(policy, st.Placement)

		projected, err := s.projectSkillValues(ctx, st.UserID, st.Placement, total, comp.SkillPoints)
		if err != nil {
			return nil, err
		}

		sum.RewardsDistributedCount++
		sum.TotalXPAwarded += comp.TotalXP
		sum.TotalCreditsAwarded += comp.Credits
		sum.Participants = append(sum.Participants, ParticipantReward{
			UserID:          st.UserID,
			Placement:       st.Placement,
			BaseXP:          comp.BaseXP,
			BonusXP:         comp.BonusXP,
			TotalXP:         comp.TotalXP,
			Credits:         comp.Credits,
			SkillPoints:     comp.SkillPoints,
			ProjectedSkills: projected,
			Skipped:         existingUsers[st.UserID],
		})
	}
	return sum, nil
}

// projectSkillValues runs the progression calculator for each skill touched
// by an allocation, as if this tournament were recorded next.
func (s *RewardService) projectSkillValues(ctx context.Context, userID string, placement, totalParticipants int, points map[string]float64) (map[string]float64, error) {
	if len(points) == 0 {
		return nil, nil
	}
	baselines, err := s.Store.BaselinesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	baselineByName := make(map[string]float64, len(baselines))
	for _, b := range baselines {
		baselineByName[b.SkillName] = b.Value
	}
	counts, err := s.Store.TournamentCountBySkill(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(points))
	for name := range points {
		baseline, ok := baselineByName[name]
		if !ok {
			baseline = models.DefaultSkillBaseline
		}
		out[name] = CalculateSkillProgression(baseline, placement, totalParticipants, counts[name]+1, 1.0)
	}
	return out, nil
}

// priorSummary rebuilds the totals of an earlier distribution from the
// persisted rows, so the idempotent no-op response matches exactly what was
// written.
func (s *RewardService) priorSummary(ctx context.Context, store RewardStore, t *models.Tournament) (*DistributionSummary, error) {
	parts, err := store.ParticipationsFor(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	sum := &DistributionSummary{
		TournamentID:       t.ID,
		AlreadyDistributed: true,
	}
	if t.RewardsDistributedAt != nil {
		sum.DistributedAt = *t.RewardsDistributedAt
	}
	for _, p := range parts {
		sum.TotalXPAwarded += p.TotalXP
		sum.TotalCreditsAwarded += p.Credits
		badges, err := store.BadgesFor(ctx, t.ID, p.UserID)
		if err != nil {
			return nil, err
		}
		sum.TotalBadgesAwarded += len(badges)
	}
	return sum, nil
}

func (s *RewardService) alreadyDistributed(ctx context.Context, tournamentID string) (*DistributionSummary, error) {
	t, err := s.Store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return s.priorSummary(ctx, s.Store, t)
}

func ledgerRows(userID, tournamentID string, points map[string]float64) []models.SkillReward {
	rows := make([]models.SkillReward, 0, len(points))
	for name, pts := range points {
		if pts == 0 {
			continue
		}
		rows = append(rows, models.SkillReward{
			ID:            uuid.NewString(),
			UserID:        userID,
			SourceType:    models.RewardSourceTournament,
			SourceID:      tournamentID,
			SkillName:     name,
			PointsAwarded: pts,
		})
	}
	return rows
}

// offsetLedgerRows cancels a prior allocation with negative adjustment rows.
// The original rows are never touched.
func offsetLedgerRows(prior *models.TournamentParticipation, at time.Time) []models.SkillReward {
	rows := make([]models.SkillReward, 0, len(prior.SkillPoints))
	for name, pts := range prior.SkillPoints {
		if pts == 0 {
			continue
		}
		rows = append(rows, models.SkillReward{
			ID:            uuid.NewString(),
			UserID:        prior.UserID,
			SourceType:    models.RewardSourceAdjustment,
			SourceID:      prior.TournamentID,
			SkillName:     name,
			PointsAwarded: -pts,
			CreatedAt:     at,
		})
	}
	return rows
}

// GetUserReward returns one user's participation, skill points and badges
// for a tournament.
func (s *RewardService) GetUserReward(ctx context.Context, tournamentID, userID string) (*UserTournamentReward, error) {
	part, err := s.Store.ParticipationFor(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.Store.BadgesFor(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	return &UserTournamentReward{Participation: part, Badges: badges}, nil
}

var rarityOrder = map[string]int{
	models.BadgeRarityLegendary: 0,
	models.BadgeRarityEpic:      1,
	models.BadgeRarityRare:      2,
	models.BadgeRarityCommon:    3,
}

// GetUserBadgeShowcase groups a user's badges into sections by category,
// rarest first within each section.
func (s *RewardService) GetUserBadgeShowcase(ctx context.Context, userID string) (*BadgeShowcase, error) {
	badges, err := s.Store.BadgesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]models.Badge)
	for _, b := range badges {
		byCategory[b.Category] = append(byCategory[b.Category], b)
	}

	showcase := &BadgeShowcase{UserID: userID, TotalBadges: len(badges)}
	for _, category := range []string{models.BadgeCategoryPlacement, models.BadgeCategoryParticipation} {
		group, ok := byCategory[category]
		if !ok {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return rarityOrder[group[i].Rarity] < rarityOrder[group[j].Rarity]
		})
		showcase.Sections = append(showcase.Sections, BadgeShowcaseSection{
			Category:    category,
			DisplayName: displayName(category),
			Badges:      group,
		})
	}
	return showcase, nil
}
