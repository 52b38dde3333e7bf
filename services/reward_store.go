package services

import (
	"context"
	"errors"

	"tournament-rewards-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage errors shared by the gorm store and test fakes, so callers never
// have to match on driver-specific errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// RewardStore is the persistence surface of the reward engine. The gorm
// implementation backs production; tests program an in-memory fake.
//
// Transact runs fn against a store bound to one database transaction; every
// write of a distribution goes through it so a failure partway leaves zero
// partial state.
type RewardStore interface {
	Transact(ctx context.Context, fn func(RewardStore) error) error

	GetTournament(ctx context.Context, tournamentID string) (*models.Tournament, error)
	// TournamentForUpdate locks the tournament row FOR UPDATE, serializing
	// concurrent distribution attempts against the same tournament.
	TournamentForUpdate(ctx context.Context, tournamentID string) (*models.Tournament, error)
	SaveTournament(ctx context.Context, t *models.Tournament) error
	TournamentsByIDs(ctx context.Context, ids []string) (map[string]*models.Tournament, error)
	CompletedAutoDistributeTournaments(ctx context.Context) ([]models.Tournament, error)

	StandingsFor(ctx context.Context, tournamentID string) ([]models.TournamentStanding, error)
	ReplaceStandings(ctx context.Context, tournamentID string, standings []models.TournamentStanding) error

	ParticipationsFor(ctx context.Context, tournamentID string) ([]models.TournamentParticipation, error)
	ParticipationFor(ctx context.Context, tournamentID, userID string) (*models.TournamentParticipation, error)
	ParticipationsByUser(ctx context.Context, userID string) ([]models.TournamentParticipation, error)
	CreateParticipation(ctx context.Context, p *models.TournamentParticipation) error
	UpsertParticipation(ctx context.Context, p *models.TournamentParticipation) error

	AppendSkillRewards(ctx context.Context, rows []models.SkillReward) error
	SkillRewardsByUser(ctx context.Context, userID string) ([]models.SkillReward, error)
	TournamentCountBySkill(ctx context.Context, userID string) (map[string]int, error)

	CreateBadges(ctx context.Context, badges []models.Badge) error
	BadgeTypesFor(ctx context.Context, tournamentID, userID string) (map[string]bool, error)
	BadgesFor(ctx context.Context, tournamentID, userID string) ([]models.Badge, error)
	BadgesByUser(ctx context.Context, userID string) ([]models.Badge, error)

	BaselinesFor(ctx context.Context, userID string) ([]models.UserSkillBaseline, error)
	UpsertBaselines(ctx context.Context, baselines []models.UserSkillBaseline) error
}

// GormRewardStore implements RewardStore on Postgres via gorm. Open the DB
// with gorm.Config{TranslateError: true} so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormRewardStore struct {
	DB *gorm.DB
}

func NewGormRewardStore(db *gorm.DB) *GormRewardStore {
	return &GormRewardStore{DB: db}
}

var _ RewardStore = (*GormRewardStore)(nil)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *GormRewardStore) Transact(ctx context.Context, fn func(RewardStore) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRewardStore{DB: tx})
	})
}

func (s *GormRewardStore) GetTournament(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var t models.Tournament
	if err := s.DB.WithContext(ctx).First(&t, "id = ?", tournamentID).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormRewardStore) TournamentForUpdate(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", tournamentID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *GormRewardStore) SaveTournament(ctx context.Context, t *models.Tournament) error {
	return translate(s.DB.WithContext(ctx).Save(t).Error)
}

func (s *GormRewardStore) TournamentsByIDs(ctx context.Context, ids []string) (map[string]*models.Tournament, error) {
	out := make(map[string]*models.Tournament, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var tournaments []models.Tournament
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&tournaments).Error; err != nil {
		return nil, translate(err)
	}
	for i := range tournaments {
		out[tournaments[i].ID] = &tournaments[i]
	}
	return out, nil
}

func (s *GormRewardStore) CompletedAutoDistributeTournaments(ctx context.Context) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	err := s.DB.WithContext(ctx).
		Where("status = ? AND auto_distribute = ?", models.TournamentStatusCompleted, true).
		Find(&tournaments).Error
	return tournaments, translate(err)
}

func (s *GormRewardStore) StandingsFor(ctx context.Context, tournamentID string) ([]models.TournamentStanding, error) {
	var standings []models.TournamentStanding
	err := s.DB.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("placement ASC").
		Find(&standings).Error
	return standings, translate(err)
}

func (s *GormRewardStore) ReplaceStandings(ctx context.Context, tournamentID string, standings []models.TournamentStanding) error {
	return s.Transact(ctx, func(tx RewardStore) error {
		g := tx.(*GormRewardStore)
		if err := g.DB.WithContext(ctx).
			Where("tournament_id = ?", tournamentID).
			Delete(&models.TournamentStanding{}).Error; err != nil {
			return translate(err)
		}
		if len(standings) == 0 {
			return nil
		}
		return translate(g.DB.WithContext(ctx).Create(&standings).Error)
	})
}

func (s *GormRewardStore) ParticipationsFor(ctx context.Context, tournamentID string) ([]models.TournamentParticipation, error) {
	var parts []models.TournamentParticipation
	err := s.DB.WithContext(ctx).Where("tournament_id = ?", tournamentID).Find(&parts).Error
	return parts, translate(err)
}

func (s *GormRewardStore) ParticipationFor(ctx context.Context, tournamentID, userID string) (*models.TournamentParticipation, error) {
	var p models.TournamentParticipation
	err := s.DB.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormRewardStore) ParticipationsByUser(ctx context.Context, userID string) ([]models.TournamentParticipation, error) {
	var parts []models.TournamentParticipation
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("distributed_at ASC").
		Find(&parts).Error
	return parts, translate(err)
}

func (s *GormRewardStore) CreateParticipation(ctx context.Context, p *models.TournamentParticipation) error {
	return translate(s.DB.WithContext(ctx).Create(p).Error)
}

func (s *GormRewardStore) UpsertParticipation(ctx context.Context, p *models.TournamentParticipation) error {
	return translate(s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "tournament_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"placement", "skill_points", "base_xp", "bonus_xp", "total_xp",
				"credits", "distributed_at", "distributed_by", "updated_at",
			}),
		}).
		Create(p).Error)
}

func (s *GormRewardStore) AppendSkillRewards(ctx context.Context, rows []models.SkillReward) error {
	if len(rows) == 0 {
		return nil
	}
	return translate(s.DB.WithContext(ctx).Create(&rows).Error)
}

func (s *GormRewardStore) SkillRewardsByUser(ctx context.Context, userID string) ([]models.SkillReward, error) {
	var rows []models.SkillReward
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, translate(err)
}

func (s *GormRewardStore) TournamentCountBySkill(ctx context.Context, userID string) (map[string]int, error) {
	type row struct {
		SkillName string
		Count     int
	}
	var rows []row
	err := s.DB.WithContext(ctx).
		Model(&models.SkillReward{}).
		Select("skill_name, COUNT(DISTINCT source_id) AS count").
		Where("user_id = ? AND source_type = ?", userID, models.RewardSourceTournament).
		Group("skill_name").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.SkillName] = r.Count
	}
	return out, nil
}

func (s *GormRewardStore) CreateBadges(ctx context.Context, badges []models.Badge) error {
	if len(badges) == 0 {
		return nil
	}
	return translate(s.DB.WithContext(ctx).Create(&badges).Error)
}

func (s *GormRewardStore) BadgeTypesFor(ctx context.Context, tournamentID, userID string) (map[string]bool, error) {
	var types []string
	err := s.DB.WithContext(ctx).
		Model(&models.Badge{}).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Pluck("badge_type", &types).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out, nil
}

func (s *GormRewardStore) BadgesFor(ctx context.Context, tournamentID, userID string) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.WithContext(ctx).
		Where("tournament_id = ? AND user_id = ?", tournamentID, userID).
		Find(&badges).Error
	return badges, translate(err)
}

func (s *GormRewardStore) BadgesByUser(ctx context.Context, userID string) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&badges).Error
	return badges, translate(err)
}

func (s *GormRewardStore) BaselinesFor(ctx context.Context, userID string) ([]models.UserSkillBaseline, error) {
	var baselines []models.UserSkillBaseline
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&baselines).Error
	return baselines, translate(err)
}

func (s *GormRewardStore) UpsertBaselines(ctx context.Context, baselines []models.UserSkillBaseline) error {
	if len(baselines) == 0 {
		return nil
	}
	return translate(s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"category", "value", "updated_at"}),
		}).
		Create(&baselines).Error)
}
