package repositories_test

import (
	"context"
	"errors"
	"testing"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newVote(voterID, constituency, candidate string) *models.Vote {
	return &models.Vote{
		ID:             uuid.NewString(),
		VoterID:        voterID,
		CandidateID:    config.CandidateID(constituency, candidate),
		ConstituencyID: config.ConstituencyID(constituency),
	}
}

func TestVoteUniqueIndexRejectsSecondVote(t *testing.T) {
	db := testutil.NewDB(t, testutil.Config())
	repo := repositories.NewVoteRepository(db)
	ctx := context.Background()
	voter := testutil.CreateProfile(t, db, "9876543210", testutil.InConstituency(testutil.NewDelhi))

	testutil.InsertVote(t, db, voter, testutil.NewDelhi, testutil.MeeraKapoor)

	// A raw insert skips the existence check, so only the index can stop this
	err := db.WithContext(ctx).Create(newVote(voter, testutil.NewDelhi, testutil.ArjunMalhotra)).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("second insert error = %v, want %v", err, gorm.ErrDuplicatedKey)
	}

	exists, err := repo.ExistsByVoterID(ctx, voter)
	if err != nil || !exists {
		t.Errorf("ExistsByVoterID() = %v, %v", exists, err)
	}
}

func TestCastAndMarkVoted(t *testing.T) {
	db := testutil.NewDB(t, testutil.Config())
	votes := repositories.NewVoteRepository(db)
	profiles := repositories.NewProfileRepository(db)
	ctx := context.Background()
	voter := testutil.CreateProfile(t, db, "9876543210", testutil.InConstituency(testutil.NewDelhi))

	if err := votes.CastAndMarkVoted(ctx, newVote(voter, testutil.NewDelhi, testutil.MeeraKapoor)); err != nil {
		t.Fatalf("CastAndMarkVoted() error = %v", err)
	}
	profile, err := profiles.GetByID(ctx, voter)
	if err != nil || !profile.HasVoted {
		t.Fatalf("profile after vote = %+v, %v", profile, err)
	}

	err = votes.CastAndMarkVoted(ctx, newVote(voter, testutil.NewDelhi, testutil.ArjunMalhotra))
	if !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Errorf("second CastAndMarkVoted() error = %v, want %v", err, domain.ErrAlreadyVoted)
	}

	// No profile row, no vote
	if err := votes.CastAndMarkVoted(ctx, newVote(uuid.NewString(), testutil.NewDelhi, testutil.MeeraKapoor)); err == nil {
		t.Error("vote for an unknown voter accepted")
	}
	if n := testutil.CountVotes(t, db, testutil.NewDelhi); n != 1 {
		t.Errorf("votes in %s = %d, want 1", testutil.NewDelhi, n)
	}
}

func TestTallyByConstituency(t *testing.T) {
	db := testutil.NewDB(t, testutil.Config())
	repo := repositories.NewVoteRepository(db)
	ctx := context.Background()

	for i, phone := range []string{"9876543210", "9876543211", "9876543212"} {
		candidate := testutil.MeeraKapoor
		if i > 0 {
			candidate = testutil.ArjunMalhotra
		}
		voter := testutil.CreateProfile(t, db, phone, testutil.InConstituency(testutil.NewDelhi))
		testutil.InsertVote(t, db, voter, testutil.NewDelhi, candidate)
	}

	rows, err := repo.TallyByConstituency(ctx, config.ConstituencyID(testutil.NewDelhi))
	if err != nil {
		t.Fatalf("TallyByConstituency() error = %v", err)
	}
	want := []struct {
		name  string
		votes int64
	}{
		{testutil.ArjunMalhotra, 2},
		{testutil.MeeraKapoor, 1},
		{"Farah Siddiqui", 0},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Name != w.name || rows[i].Votes != w.votes {
			t.Errorf("rows[%d] = %s/%d, want %s/%d", i, rows[i].Name, rows[i].Votes, w.name, w.votes)
		}
	}

	other, err := repo.TallyByConstituency(ctx, config.ConstituencyID(testutil.MumbaiSouth))
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range other {
		if row.Votes != 0 {
			t.Errorf("%s has %d votes in an untouched constituency", row.Name, row.Votes)
		}
	}
}
