package config

import (
	"context"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// demoElection is the master data loaded in dev mode. IDs are derived from
// names so reseeding is idempotent.
var demoElection = []struct {
	Constituency models.Constituency
	Candidates   []models.Candidate
}{
	{
		Constituency: models.Constituency{Name: "New Delhi", State: "Delhi", TotalVoters: 1500},
		Candidates: []models.Candidate{
			{Name: "Meera Kapoor", Party: "Progressive Alliance", PartySymbol: "lotus"},
			{Name: "Arjun Malhotra", Party: "People's Front", PartySymbol: "hand"},
			{Name: "Farah Siddiqui", Party: "Independent", PartySymbol: "kite"},
		},
	},
	{
		Constituency: models.Constituency{Name: "Mumbai South", State: "Maharashtra", TotalVoters: 1200},
		Candidates: []models.Candidate{
			{Name: "Rohan Deshmukh", Party: "Progressive Alliance", PartySymbol: "lotus"},
			{Name: "Sunita Patil", Party: "People's Front", PartySymbol: "hand"},
		},
	},
	{
		Constituency: models.Constituency{Name: "Bangalore Central", State: "Karnataka", TotalVoters: 1800},
		Candidates: []models.Candidate{
			{Name: "Kavya Reddy", Party: "Progressive Alliance", PartySymbol: "lotus"},
			{Name: "Naveen Gowda", Party: "Farmers' Union", PartySymbol: "plough"},
			{Name: "Imran Sheikh", Party: "People's Front", PartySymbol: "hand"},
		},
	},
}

// ConstituencyID returns the deterministic seed ID for a constituency name
func ConstituencyID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("constituency:"+name)).String()
}

// CandidateID returns the deterministic seed ID for a candidate
func CandidateID(constituency, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("candidate:"+constituency+":"+name)).String()
}

// SeedMasterData seeds demo constituencies and candidates
func SeedMasterData(ctx context.Context, db *gorm.DB) error {
	constituencyRepo := repositories.NewConstituencyRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)

	for _, entry := range demoElection {
		constituency := entry.Constituency
		constituency.ID = ConstituencyID(constituency.Name)
		if err := constituencyRepo.Upsert(ctx, &constituency); err != nil {
			return err
		}

		for _, candidate := range entry.Candidates {
			candidate.ID = CandidateID(constituency.Name, candidate.Name)
			candidate.ConstituencyID = constituency.ID
			if err := candidateRepo.Upsert(ctx, &candidate); err != nil {
				return err
			}
		}
		logger.Debug("seeded constituency", zap.String("name", constituency.Name), zap.Int("candidates", len(entry.Candidates)))
	}

	logger.Info("master data seeded", zap.Int("constituencies", len(demoElection)))
	return nil
}
