package services

import (
	"context"
	"sort"
	"strings"

	"tournament-rewards-system/models"
)

// fakeRewardStore is a programmable in-memory RewardStore. Transact
// snapshots the state and restores it when fn fails, mirroring the
// all-or-nothing behavior of the real transaction.
type fakeRewardStore struct {
	tournaments    map[string]models.Tournament
	standings      map[string][]models.TournamentStanding
	participations map[string]models.TournamentParticipation // key: tournamentID|userID
	ledger         []models.SkillReward
	badges         []models.Badge
	baselines      map[string][]models.UserSkillBaseline

	trace []string

	CreateParticipationErr error
	AppendSkillRewardsErr  error
}

func newFakeRewardStore() *fakeRewardStore {
	return &fakeRewardStore{
		tournaments:    map[string]models.Tournament{},
		standings:      map[string][]models.TournamentStanding{},
		participations: map[string]models.TournamentParticipation{},
		baselines:      map[string][]models.UserSkillBaseline{},
	}
}

var _ RewardStore = (*fakeRewardStore)(nil)

func (f *fakeRewardStore) record(step string) {
	f.trace = append(f.trace, step)
}

func partKey(tournamentID, userID string) string {
	return tournamentID + "|" + userID
}

func (f *fakeRewardStore) snapshot() *fakeRewardStore {
	snap := newFakeRewardStore()
	for k, v := range f.tournaments {
		snap.tournaments[k] = v
	}
	for k, v := range f.standings {
		snap.standings[k] = append([]models.TournamentStanding(nil), v...)
	}
	for k, v := range f.participations {
		snap.participations[k] = v
	}
	snap.ledger = append([]models.SkillReward(nil), f.ledger...)
	snap.badges = append([]models.Badge(nil), f.badges...)
	for k, v := range f.baselines {
		snap.baselines[k] = append([]models.UserSkillBaseline(nil), v...)
	}
	return snap
}

func (f *fakeRewardStore) restore(snap *fakeRewardStore) {
	f.tournaments = snap.tournaments
	f.standings = snap.standings
	f.participations = snap.participations
	f.ledger = snap.ledger
	f.badges = snap.badges
	f.baselines = snap.baselines
}

func (f *fakeRewardStore) Transact(ctx context.Context, fn func(RewardStore) error) error {
	f.record("Transact")
	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeRewardStore) GetTournament(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	f.record("GetTournament")
	t, ok := f.tournaments[tournamentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (f *fakeRewardStore) TournamentForUpdate(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	f.record("TournamentForUpdate")
	t, ok := f.tournaments[tournamentID]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (f *fakeRewardStore) SaveTournament(ctx context.Context, t *models.Tournament) error {
	f.record("SaveTournament")
	f.tournaments[t.ID] = *t
	return nil
}

func (f *fakeRewardStore) TournamentsByIDs(ctx context.Context, ids []string) (map[string]*models.Tournament, error) {
	out := make(map[string]*models.Tournament, len(ids))
	for _, id := range ids {
		if t, ok := f.tournaments[id]; ok {
			c := t
			out[id] = &c
		}
	}
	return out, nil
}

func (f *fakeRewardStore) CompletedAutoDistributeTournaments(ctx context.Context) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range f.tournaments {
		if t.Status == models.TournamentStatusCompleted && t.AutoDistribute {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRewardStore) StandingsFor(ctx context.Context, tournamentID string) ([]models.TournamentStanding, error) {
	out := append([]models.TournamentStanding(nil), f.standings[tournamentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Placement < out[j].Placement })
	return out, nil
}

func (f *fakeRewardStore) ReplaceStandings(ctx context.Context, tournamentID string, standings []models.TournamentStanding) error {
	f.record("ReplaceStandings")
	f.standings[tournamentID] = append([]models.TournamentStanding(nil), standings...)
	return nil
}

func (f *fakeRewardStore) ParticipationsFor(ctx context.Context, tournamentID string) ([]models.TournamentParticipation, error) {
	var out []models.TournamentParticipation
	for k, p := range f.participations {
		if strings.HasPrefix(k, tournamentID+"|") {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Placement < out[j].Placement })
	return out, nil
}

func (f *fakeRewardStore) ParticipationFor(ctx context.Context, tournamentID, userID string) (*models.TournamentParticipation, error) {
	p, ok := f.participations[partKey(tournamentID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeRewardStore) ParticipationsByUser(ctx context.Context, userID string) ([]models.TournamentParticipation, error) {
	var out []models.TournamentParticipation
	for _, p := range f.participations {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistributedAt.Before(out[j].DistributedAt) })
	return out, nil
}

func (f *fakeRewardStore) CreateParticipation(ctx context.Context, p *models.TournamentParticipation) error {
	f.record("CreateParticipation")
	if f.CreateParticipationErr != nil {
		return f.CreateParticipationErr
	}
	key := partKey(p.TournamentID, p.UserID)
	if _, exists := f.participations[key]; exists {
		return ErrDuplicate
	}
	f.participations[key] = *p
	return nil
}

func (f *fakeRewardStore) UpsertParticipation(ctx context.Context, p *models.TournamentParticipation) error {
	f.record("UpsertParticipation")
	f.participations[partKey(p.TournamentID, p.UserID)] = *p
	return nil
}

func (f *fakeRewardStore) AppendSkillRewards(ctx context.Context, rows []models.SkillReward) error {
	if len(rows) > 0 {
		f.record("AppendSkillRewards")
	}
	if f.AppendSkillRewardsErr != nil {
		return f.AppendSkillRewardsErr
	}
	f.ledger = append(f.ledger, rows...)
	return nil
}

func (f *fakeRewardStore) SkillRewardsByUser(ctx context.Context, userID string) ([]models.SkillReward, error) {
	var out []models.SkillReward
	for _, r := range f.ledger {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRewardStore) TournamentCountBySkill(ctx context.Context, userID string) (map[string]int, error) {
	sources := make(map[string]map[string]bool)
	for _, r := range f.ledger {
		if r.UserID != userID || r.SourceType != models.RewardSourceTournament {
			continue
		}
		if sources[r.SkillName] == nil {
			sources[r.SkillName] = map[string]bool{}
		}
		sources[r.SkillName][r.SourceID] = true
	}
	out := make(map[string]int, len(sources))
	for skill, ids := range sources {
		out[skill] = len(ids)
	}
	return out, nil
}

func (f *fakeRewardStore) CreateBadges(ctx context.Context, badges []models.Badge) error {
	if len(badges) > 0 {
		f.record("CreateBadges")
	}
	for _, b := range badges {
		for _, existing := range f.badges {
			if existing.UserID == b.UserID && existing.TournamentID == b.TournamentID && existing.BadgeType == b.BadgeType {
				return ErrDuplicate
			}
		}
		f.badges = append(f.badges, b)
	}
	return nil
}

func (f *fakeRewardStore) BadgeTypesFor(ctx context.Context, tournamentID, userID string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, b := range f.badges {
		if b.TournamentID == tournamentID && b.UserID == userID {
			out[b.BadgeType] = true
		}
	}
	return out, nil
}

func (f *fakeRewardStore) BadgesFor(ctx context.Context, tournamentID, userID string) ([]models.Badge, error) {
	var out []models.Badge
	for _, b := range f.badges {
		if b.TournamentID == tournamentID && b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRewardStore) BadgesByUser(ctx context.Context, userID string) ([]models.Badge, error) {
	var out []models.Badge
	for _, b := range f.badges {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeRewardStore) BaselinesFor(ctx context.Context, userID string) ([]models.UserSkillBaseline, error) {
	return append([]models.UserSkillBaseline(nil), f.baselines[userID]...), nil
}

func (f *fakeRewardStore) UpsertBaselines(ctx context.Context, baselines []models.UserSkillBaseline) error {
	for _, b := range baselines {
		replaced := false
		existing := f.baselines[b.UserID]
		for i, e := range existing {
			if e.SkillName == b.SkillName {
				existing[i] = b
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, b)
		}
		f.baselines[b.UserID] = existing
	}
	return nil
}
