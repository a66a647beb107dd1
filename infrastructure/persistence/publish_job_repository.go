package persistence

import (
	"context"
	"errors"
	"time"

	"media-publisher/domain/model"
	"media-publisher/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const publishJobCollection = "publish_jobs"

// PublishJobRepository stores publish jobs in MongoDB with a secondary index
// on the platform-assigned publish ID for webhook lookups.
type PublishJobRepository struct {
	col *mongo.Collection
}

func NewPublishJobRepository(db *mongo.Database) repository.IPublishJob {
	return &PublishJobRepository{col: db.Collection(publishJobCollection)}
}

// EnsurePublishJobIndexes creates the platformPublishId secondary index.
func EnsurePublishJobIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(publishJobCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "platformPublishId", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	return err
}

func (r *PublishJobRepository) Create(ctx context.Context, job *model.PublishJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, job)
	return err
}

func (r *PublishJobRepository) GetByID(ctx context.Context, jobID string) (*model.PublishJob, error) {
	job := &model.PublishJob{}
	err := r.col.FindOne(ctx, bson.M{"_id": jobID}).Decode(job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *PublishJobRepository) GetByPlatformPublishID(ctx context.Context, platformPublishID string) (*model.PublishJob, error) {
	job := &model.PublishJob{}
	err := r.col.FindOne(ctx, bson.M{"platformPublishId": platformPublishID}).Decode(job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *PublishJobRepository) ListActive(ctx context.Context) ([]*model.PublishJob, error) {
	filter := bson.M{"status": bson.M{"$in": bson.A{
		model.PublishStatusInitiated,
		model.PublishStatusUploading,
		model.PublishStatusProcessing,
	}}}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var jobs []*model.PublishJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Update replaces the whole document, but only while the stored status still
// ranks below the one being written. A concurrent writer that already moved
// the job forward leaves nothing to match and the write is dropped with
// model.ErrTransitionSuperseded, so a slow FAILED can never overwrite a
// committed PUBLISHED.
func (r *PublishJobRepository) Update(ctx context.Context, job *model.PublishJob) error {
	job.UpdatedAt = time.Now().UTC()
	prior := bson.A{}
	for _, s := range model.StatusesBelow(job.Status) {
		prior = append(prior, s)
	}
	filter := bson.M{"_id": job.JobID, "status": bson.M{"$in": prior}}
	res, err := r.col.ReplaceOne(ctx, filter, job)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, cerr := r.col.CountDocuments(ctx, bson.M{"_id": job.JobID})
		if cerr == nil && n == 0 {
			return model.ErrJobNotFound
		}
		return model.ErrTransitionSuperseded
	}
	return nil
}
