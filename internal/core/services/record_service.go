package services

import (
	"context"
	"errors"
	"strings"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/core/domain"
	"votedesk/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecordService is the access layer over profiles, constituencies,
// candidates and votes. Every operation converts failures into a plain
// result: an empty list, nil, or false, after logging and notifying.
type RecordService struct {
	constituencyRepo repositories.ConstituencyRepository
	candidateRepo    repositories.CandidateRepository
	profileRepo      repositories.ProfileRepository
	voteRepo         repositories.VoteRepository
	notifier         Notifier
}

// NewRecordService creates a new record service with no notifier bound
func NewRecordService(
	constituencyRepo repositories.ConstituencyRepository,
	candidateRepo repositories.CandidateRepository,
	profileRepo repositories.ProfileRepository,
	voteRepo repositories.VoteRepository,
) *RecordService {
	return &RecordService{
		constituencyRepo: constituencyRepo,
		candidateRepo:    candidateRepo,
		profileRepo:      profileRepo,
		voteRepo:         voteRepo,
		notifier:         NopNotifier,
	}
}

// For returns a copy of the service that reports to n
func (s *RecordService) For(n Notifier) *RecordService {
	if n == nil {
		n = NopNotifier
	}
	c := *s
	c.notifier = n
	return &c
}

func (s *RecordService) fail(op, title string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	logger.Error("record operation failed", fields...)
	s.notifier.Notify(LevelError, title, userMessage(err))
}

// GetConstituencies lists all constituencies with their votes cast
func (s *RecordService) GetConstituencies(ctx context.Context) []domain.Constituency {
	rows, err := s.constituencyRepo.ListWithTurnout(ctx)
	if err != nil {
		s.fail("get constituencies", "Could not load constituencies", domain.Storage("list constituencies", err))
		return []domain.Constituency{}
	}

	out := make([]domain.Constituency, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out
}

// GetConstituencyByName returns the named constituency, or nil
func (s *RecordService) GetConstituencyByName(ctx context.Context, name string) *domain.Constituency {
	row, err := s.constituencyRepo.GetByName(ctx, name)
	if err != nil {
		s.fail("get constituency by name", "Could not load constituency", storageErr("get constituency", err), zap.String("name", name))
		return nil
	}
	c := row.ToDomain()
	return &c
}

// GetCandidatesByConstituency lists the candidates standing in a constituency
func (s *RecordService) GetCandidatesByConstituency(ctx context.Context, constituencyID string) []domain.Candidate {
	rows, err := s.candidateRepo.ListByConstituency(ctx, constituencyID)
	if err != nil {
		s.fail("get candidates", "Could not load candidates", domain.Storage("list candidates", err), zap.String("constituency_id", constituencyID))
		return []domain.Candidate{}
	}

	out := make([]domain.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToDomain())
	}
	return out
}

// CheckVoteStatus reports the voter's has_voted flag. Any failure reads as false.
func (s *RecordService) CheckVoteStatus(ctx context.Context, voterID string) bool {
	profile, err := s.profileRepo.GetByID(ctx, voterID)
	if err != nil {
		s.fail("check vote status", "Could not check vote status", storageErr("get profile", err), zap.String("voter_id", voterID))
		return false
	}
	return profile.HasVoted
}

// CastVote records the voter's single vote. It returns false when the voter
// already voted, the candidate is not on this constituency's ballot, or the
// store fails.
func (s *RecordService) CastVote(ctx context.Context, voterID, candidateID, constituencyID string) bool {
	if strings.TrimSpace(candidateID) == "" {
		s.fail("cast vote", "Vote not recorded", domain.ErrEmptyCandidate, zap.String("voter_id", voterID))
		return false
	}

	exists, err := s.voteRepo.ExistsByVoterID(ctx, voterID)
	if err != nil {
		s.fail("cast vote", "Vote not recorded", domain.Storage("check existing vote", err), zap.String("voter_id", voterID))
		return false
	}
	if exists {
		s.alreadyVoted(voterID)
		return false
	}

	candidate, err := s.candidateRepo.GetByID(ctx, candidateID)
	if err != nil {
		s.fail("cast vote", "Vote not recorded", storageErr("get candidate", err), zap.String("candidate_id", candidateID))
		return false
	}
	if candidate.ConstituencyID != constituencyID {
		s.fail("cast vote", "Vote not recorded", domain.ErrCandidateMismatch,
			zap.String("candidate_id", candidateID), zap.String("constituency_id", constituencyID))
		return false
	}

	vote := &models.Vote{
		ID:             uuid.NewString(),
		VoterID:        voterID,
		CandidateID:    candidateID,
		ConstituencyID: constituencyID,
	}
	if err := s.voteRepo.CastAndMarkVoted(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			s.alreadyVoted(voterID)
			return false
		}
		s.fail("cast vote", "Vote not recorded", storageErr("cast vote", err), zap.String("voter_id", voterID))
		return false
	}

	logger.Info("vote cast", zap.String("voter_id", voterID), zap.String("constituency_id", constituencyID))
	s.notifier.Notify(LevelSuccess, "Vote recorded", "Your vote has been cast successfully.")
	return true
}

func (s *RecordService) alreadyVoted(voterID string) {
	logger.Warn("duplicate vote rejected", zap.String("voter_id", voterID))
	s.notifier.Notify(LevelError, "Already voted", "You have already cast your vote.")
}

// GetUserProfile returns the profile joined with its constituency, or nil
func (s *RecordService) GetUserProfile(ctx context.Context, userID string) *domain.Profile {
	row, err := s.profileRepo.GetWithConstituency(ctx, userID)
	if err != nil {
		s.fail("get user profile", "Could not load profile", storageErr("get profile", err), zap.String("user_id", userID))
		return nil
	}
	return row.ToDomain()
}

// UpdateUserProfile applies the non-nil fields of update
func (s *RecordService) UpdateUserProfile(ctx context.Context, userID string, update domain.ProfileUpdate) bool {
	fields := profileFields(update)
	if len(fields) == 0 {
		return true
	}
	if err := s.profileRepo.Update(ctx, userID, fields); err != nil {
		s.fail("update user profile", "Could not update profile", storageErr("update profile", err), zap.String("user_id", userID))
		return false
	}
	return true
}

// GetTurnout lists constituencies with votes cast, for the administrator overview
func (s *RecordService) GetTurnout(ctx context.Context) []domain.Constituency {
	return s.GetConstituencies(ctx)
}

// GetResults returns per-candidate tallies, most votes first
func (s *RecordService) GetResults(ctx context.Context, constituencyID string) []domain.CandidateTally {
	rows, err := s.voteRepo.TallyByConstituency(ctx, constituencyID)
	if err != nil {
		s.fail("get results", "Could not load results", domain.Storage("tally votes", err), zap.String("constituency_id", constituencyID))
		return []domain.CandidateTally{}
	}

	out := make([]domain.CandidateTally, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.CandidateTally{
			Candidate: domain.Candidate{
				ID:             row.CandidateID,
				ConstituencyID: row.ConstituencyID,
				Name:           row.Name,
				Party:          row.Party,
				PartySymbol:    row.PartySymbol,
			},
			Votes: row.Votes,
		})
	}
	return out
}

func profileFields(update domain.ProfileUpdate) map[string]interface{} {
	fields := make(map[string]interface{})
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.AadhaarNumber != nil {
		fields["aadhaar_number"] = *update.AadhaarNumber
	}
	if update.VoterID != nil {
		fields["voter_id"] = *update.VoterID
	}
	if update.ConstituencyID != nil {
		fields["constituency_id"] = *update.ConstituencyID
	}
	if update.HasVoted != nil {
		fields["has_voted"] = *update.HasVoted
	}
	return fields
}

// storageErr maps a missing row to domain.ErrNotFound and wraps the rest
func storageErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return domain.Storage(op, err)
}

// userMessage strips the kind prefix so notifications read naturally
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if kind := domain.KindOf(err); kind != nil {
		msg = strings.TrimPrefix(msg, kind.Error()+": ")
	}
	return msg
}
