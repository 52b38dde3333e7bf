package services

import (
	"context"
	"errors"
	"testing"

	"tournament-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTournament(f *fakeRewardStore, id, status string, placements int) {
	f.tournaments[id] = models.Tournament{
		ID:     id,
		Name:   "Summer Invitational",
		Status: status,
	}
	var standings []models.TournamentStanding
	for i := 1; i <= placements; i++ {
		standings = append(standings, models.TournamentStanding{
			ID:           "st-" + string(rune('0'+i)),
			TournamentID: id,
			UserID:       "user-" + string(rune('0'+i)),
			Placement:    i,
		})
	}
	f.standings[id] = standings
}

func TestDistributeRewards_FullRun(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 4)
	svc := NewRewardService(f)

	sum, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)

	// Default policy, weight sum 15. Placement 1 (pool 10, x3.0):
	// base 300, bonus 22+16+10+20+13+8 = 89. Placement 2 (pool 8, x2.0):
	// base 200, bonus 72. Placement 3 (pool 6, x1.5): base 150, bonus 54.
	// Placement 4 (defaults, pool 5): base 100, bonus 45.
	assert.Equal(t, 4, sum.RewardsDistributedCount)
	assert.Equal(t, int64(389+272+204+145), sum.TotalXPAwarded)
	assert.Equal(t, int64(50+30+20+5), sum.TotalCreditsAwarded)
	assert.Equal(t, 7, sum.TotalBadgesAwarded) // 3 podium tiers + 4 participants
	assert.False(t, sum.AlreadyDistributed)

	require.Len(t, sum.Participants, 4)
	winner := sum.Participants[0]
	assert.Equal(t, "user-1", winner.UserID)
	assert.Equal(t, int64(300), winner.BaseXP)
	assert.Equal(t, int64(89), winner.BonusXP)
	assert.Equal(t, int64(389), winner.TotalXP)
	assert.Equal(t, int64(50), winner.Credits)
	assert.Equal(t, 2.7, winner.SkillPoints["speed"])
	assert.ElementsMatch(t, []string{models.BadgeTypeParticipant, models.BadgeTypeChampion}, winner.Badges)

	// Persisted state: one participation per standing, six ledger rows each,
	// tournament closed out.
	assert.Len(t, f.participations, 4)
	assert.Len(t, f.ledger, 24)
	assert.Len(t, f.badges, 7)

	closed := f.tournaments["tour-1"]
	assert.Equal(t, models.TournamentStatusRewardsDistributed, closed.Status)
	assert.Equal(t, 4, closed.TotalParticipants)
	assert.Equal(t, "admin-1", closed.RewardsDistributedBy)
	require.NotNil(t, closed.RewardsDistributedAt)

	for _, row := range f.ledger {
		assert.Equal(t, models.RewardSourceTournament, row.SourceType)
		assert.Equal(t, "tour-1", row.SourceID)
		assert.Greater(t, row.PointsAwarded, 0.0)
	}
}

func TestDistributeRewards_SecondCallIsNoOp(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 4)
	svc := NewRewardService(f)

	first, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)
	ledgerBefore := len(f.ledger)
	badgesBefore := len(f.badges)

	second, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-2")
	require.NoError(t, err)

	assert.Equal(t, 0, second.RewardsDistributedCount)
	assert.True(t, second.AlreadyDistributed)
	assert.Equal(t, first.TotalXPAwarded, second.TotalXPAwarded)
	assert.Equal(t, first.TotalCreditsAwarded, second.TotalCreditsAwarded)
	assert.Equal(t, first.TotalBadgesAwarded, second.TotalBadgesAwarded)

	// Nothing written the second time.
	assert.Len(t, f.ledger, ledgerBefore)
	assert.Len(t, f.badges, badgesBefore)
	assert.Equal(t, "admin-1", f.tournaments["tour-1"].RewardsDistributedBy)
}

func TestDistributeRewards_ForceReplacesInPlace(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 2)
	svc := NewRewardService(f)

	_, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)

	originalIDs := map[string]string{}
	for _, p := range f.participations {
		originalIDs[p.UserID] = p.ID
	}

	// A scoring correction swaps the podium.
	f.standings["tour-1"] = []models.TournamentStanding{
		{ID: "st-1", TournamentID: "tour-1", UserID: "user-2", Placement: 1},
		{ID: "st-2", TournamentID: "tour-1", UserID: "user-1", Placement: 2},
	}

	sum, err := svc.DistributeRewards(context.Background(), "tour-1", true, "admin-2")
	require.NoError(t, err)
	assert.True(t, sum.Forced)
	assert.Equal(t, 2, sum.RewardsDistributedCount)
	for _, p := range sum.Participants {
		assert.True(t, p.Overwritten)
	}

	// Participations replaced in place: same count, same row IDs, new ranks.
	require.Len(t, f.participations, 2)
	for _, p := range f.participations {
		assert.Equal(t, originalIDs[p.UserID], p.ID)
		assert.Equal(t, "admin-2", p.DistributedBy)
	}
	demoted, err := f.ParticipationFor(context.Background(), "tour-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, demoted.Placement)
	assert.Equal(t, int64(272), demoted.TotalXP)

	// The ledger is append-only: 6 original rows per user, 6 offsets, 6 new.
	assert.Len(t, f.ledger, 36)
	var adjustments int
	sums := map[string]float64{} // userID|skill -> net points
	for _, row := range f.ledger {
		if row.SourceType == models.RewardSourceAdjustment {
			adjustments++
			assert.Negative(t, row.PointsAwarded)
		}
		sums[row.UserID+"|"+row.SkillName] += row.PointsAwarded
	}
	assert.Equal(t, 12, adjustments)
	// Net position equals the post-correction allocation (user-1 now rank 2,
	// pool 8: speed share 8*4/15 rounded to 2.1).
	assert.InDelta(t, 2.1, sums["user-1|speed"], 1e-9)
	assert.InDelta(t, 2.7, sums["user-2|speed"], 1e-9)

	// Badges are never revoked and never duplicated; each user gains the
	// tier badge for the corrected rank alongside the old one.
	types := map[string][]string{}
	for _, b := range f.badges {
		types[b.UserID] = append(types[b.UserID], b.BadgeType)
	}
	assert.ElementsMatch(t, []string{models.BadgeTypeParticipant, models.BadgeTypeChampion, models.BadgeTypeRunnerUp}, types["user-1"])
	assert.ElementsMatch(t, []string{models.BadgeTypeParticipant, models.BadgeTypeChampion, models.BadgeTypeRunnerUp}, types["user-2"])
}

func TestDistributeRewards_TournamentNotFound(t *testing.T) {
	svc := NewRewardService(newFakeRewardStore())
	_, err := svc.DistributeRewards(context.Background(), "missing", false, "admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDistributeRewards_RejectsUnfinishedTournament(t *testing.T) {
	for _, status := range []string{
		models.TournamentStatusDraft,
		models.TournamentStatusPublished,
		models.TournamentStatusInProgress,
	} {
		f := newFakeRewardStore()
		seedTournament(f, "tour-1", status, 2)
		svc := NewRewardService(f)

		_, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
		assert.ErrorIs(t, err, ErrTournamentNotCompleted, "status %s", status)
		assert.Empty(t, f.participations)
	}
}

func TestDistributeRewards_RejectsEmptyStandings(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 0)
	svc := NewRewardService(f)

	_, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	assert.ErrorIs(t, err, ErrNoStandings)
	assert.Equal(t, models.TournamentStatusCompleted, f.tournaments["tour-1"].Status)
}

func TestDistributeRewards_RejectsDuplicateStandingUser(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 0)
	f.standings["tour-1"] = []models.TournamentStanding{
		{TournamentID: "tour-1", UserID: "user-1", Placement: 1},
		{TournamentID: "tour-1", UserID: "user-1", Placement: 2},
	}
	svc := NewRewardService(f)

	_, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	assert.ErrorIs(t, err, ErrDuplicateParticipant)
	assert.Empty(t, f.participations)
}

func TestDistributeRewards_MalformedPolicyFallsBackToDefault(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 1)
	broken := models.RewardPolicy{
		SkillMappings: []models.SkillMapping{
			{SkillName: "speed", Weight: -1, Category: models.SkillCategoryPhysical, Enabled: true},
		},
	}
	tour := f.tournaments["tour-1"]
	tour.RewardPolicy = &broken
	f.tournaments["tour-1"] = tour
	svc := NewRewardService(f)

	sum, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)

	// Default-policy numbers, not the broken attachment.
	require.Len(t, sum.Participants, 1)
	assert.Equal(t, int64(389), sum.Participants[0].TotalXP)
	assert.Equal(t, int64(50), sum.Participants[0].Credits)
}

func TestDistributeRewards_ConcurrentDuplicateBecomesNoOp(t *testing.T) {
	// A competing call can commit between this call's reads and writes. The
	// unique constraint rejects the insert; the caller gets the idempotent
	// response, not an error.
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 2)
	f.CreateParticipationErr = ErrDuplicate
	svc := NewRewardService(f)

	sum, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)
	assert.True(t, sum.AlreadyDistributed)
	assert.Equal(t, 0, sum.RewardsDistributedCount)
}

func TestDistributeRewards_MidFlightFailureRollsBackEverything(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 3)
	f.AppendSkillRewardsErr = errors.New("connection reset")
	svc := NewRewardService(f)

	_, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.Error(t, err)

	// All or nothing: no partial participant state survives.
	assert.Empty(t, f.participations)
	assert.Empty(t, f.ledger)
	assert.Empty(t, f.badges)
	assert.Equal(t, models.TournamentStatusCompleted, f.tournaments["tour-1"].Status)

	// Retry after the outage succeeds in full.
	f.AppendSkillRewardsErr = nil
	sum, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.RewardsDistributedCount)
	assert.Len(t, f.participations, 3)
}

func TestPreviewRewards_PersistsNothing(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 2)
	svc := NewRewardService(f)

	sum, err := svc.PreviewRewards(context.Background(), "tour-1")
	require.NoError(t, err)

	assert.True(t, sum.Preview)
	assert.Equal(t, 2, sum.RewardsDistributedCount)
	assert.Equal(t, int64(389+272), sum.TotalXPAwarded)

	assert.Empty(t, f.participations)
	assert.Empty(t, f.ledger)
	assert.Empty(t, f.badges)
	assert.Equal(t, models.TournamentStatusCompleted, f.tournaments["tour-1"].Status)
}

func TestPreviewRewards_ProjectsSkillValues(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 2)
	svc := NewRewardService(f)

	sum, err := svc.PreviewRewards(context.Background(), "tour-1")
	require.NoError(t, err)
	require.Len(t, sum.Participants, 2)

	// No baseline rows and no prior tournaments: baseline 5.0, first
	// recorded event weighs 1/2. Winner of 2 projects 5*0.5 + 10*0.5 = 7.5,
	// last place projects 5*0.5 + 1*0.5 = 3.0.
	winner := sum.Participants[0]
	require.NotEmpty(t, winner.ProjectedSkills)
	assert.InDelta(t, 7.5, winner.ProjectedSkills["speed"], 1e-9)

	loser := sum.Participants[1]
	assert.InDelta(t, 3.0, loser.ProjectedSkills["speed"], 1e-9)
}

func TestPreviewRewards_RejectsUnfinishedTournament(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusInProgress, 2)
	svc := NewRewardService(f)

	_, err := svc.PreviewRewards(context.Background(), "tour-1")
	assert.ErrorIs(t, err, ErrTournamentNotCompleted)
}

func TestGetUserReward(t *testing.T) {
	f := newFakeRewardStore()
	seedTournament(f, "tour-1", models.TournamentStatusCompleted, 2)
	svc := NewRewardService(f)

	_, err := svc.DistributeRewards(context.Background(), "tour-1", false, "admin-1")
	require.NoError(t, err)

	reward, err := svc.GetUserReward(context.Background(), "tour-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, reward.Participation.Placement)
	assert.Equal(t, int64(389), reward.Participation.TotalXP)
	assert.Len(t, reward.Badges, 2)

	_, err = svc.GetUserReward(context.Background(), "tour-1", "stranger")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserBadgeShowcase_GroupsAndSortsByRarity(t *testing.T) {
	f := newFakeRewardStore()
	f.badges = []models.Badge{
		{ID: "b1", UserID: "user-1", TournamentID: "t1", BadgeType: models.BadgeTypeParticipant,
			Category: models.BadgeCategoryParticipation, Rarity: models.BadgeRarityCommon},
		{ID: "b2", UserID: "user-1", TournamentID: "t1", BadgeType: models.BadgeTypeThirdPlace,
			Category: models.BadgeCategoryPlacement, Rarity: models.BadgeRarityRare},
		{ID: "b3", UserID: "user-1", TournamentID: "t2", BadgeType: models.BadgeTypeChampion,
			Category: models.BadgeCategoryPlacement, Rarity: models.BadgeRarityEpic},
		{ID: "b4", UserID: "someone-else", TournamentID: "t2", BadgeType: models.BadgeTypeChampion,
			Category: models.BadgeCategoryPlacement, Rarity: models.BadgeRarityEpic},
	}
	svc := NewRewardService(f)

	showcase, err := svc.GetUserBadgeShowcase(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 3, showcase.TotalBadges)
	require.Len(t, showcase.Sections, 2)

	placement := showcase.Sections[0]
	assert.Equal(t, models.BadgeCategoryPlacement, placement.Category)
	require.Len(t, placement.Badges, 2)
	assert.Equal(t, models.BadgeTypeChampion, placement.Badges[0].BadgeType) // epic before rare

	participation := showcase.Sections[1]
	assert.Equal(t, models.BadgeCategoryParticipation, participation.Category)
	assert.Len(t, participation.Badges, 1)
}
