package candidateRepo

import (
	"context"
	"fmt"
	"time"

	"lokals/database"
	"lokals/models"
	"lokals/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCandidateRepo implements CandidateRepository using MongoDB.
type MongoCandidateRepo struct {
	coll *mongo.Collection
}

// NewMongoCandidateRepo creates a new CandidateRepository backed by the
// "candidates" collection.
func NewMongoCandidateRepo() CandidateRepository {
	repo := &MongoCandidateRepo{coll: database.DB().Collection("candidates")}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Sugar().Warnf("candidate repo: failed to ensure indexes: %v", err)
	}
	return repo
}

func (r *MongoCandidateRepo) Upsert(ctx context.Context, c models.Candidate) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"providerId": c.ProviderID}
	update := bson.M{"$set": c}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert candidate %s: %w", c.ProviderID, err)
	}
	return nil
}

func (r *MongoCandidateRepo) SetActive(ctx context.Context, providerID string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"providerId": providerID},
		bson.M{"$set": bson.M{"isActive": active}},
	)
	if err != nil {
		return fmt.Errorf("failed to set active flag for %s: %w", providerID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NewNotFound(fmt.Sprintf("provider %s not found", providerID))
	}
	return nil
}

func (r *MongoCandidateRepo) UpdateLocation(ctx context.Context, providerID string, loc models.GeoPoint) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"providerId": providerID},
		bson.M{"$set": bson.M{"location": loc}},
	)
	if err != nil {
		return fmt.Errorf("failed to update location for %s: %w", providerID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NewNotFound(fmt.Sprintf("provider %s not found", providerID))
	}
	return nil
}
