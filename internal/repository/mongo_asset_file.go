package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/assetfiles/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoAssetFileRepository struct {
	collection *mongo.Collection
}

func NewMongoAssetFileRepository(db *mongo.Database) *MongoAssetFileRepository {
	coll := db.Collection("asset_files")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Serves the duplicate filename lookup and listing
			Keys: bson.D{
				{Key: "asset_uid", Value: 1},
				{Key: "file_type", Value: 1},
				{Key: "metadata.filename", Value: 1},
			},
		},
	}
	coll.Indexes().CreateMany(ctx, models)

	return &MongoAssetFileRepository{
		collection: coll,
	}
}

// notDeleted matches records without a deleted_at timestamp
func notDeleted(filter bson.M) bson.M {
	filter["deleted_at"] = bson.M{"$exists": false}
	return filter
}

func (r *MongoAssetFileRepository) Create(ctx context.Context, file *domain.AssetFile) error {
	if file.DateCreated.IsZero() {
		file.DateCreated = time.Now()
	}

	result, err := r.collection.InsertOne(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to create asset file: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		file.ID = oid.Hex()
	}
	return nil
}

func (r *MongoAssetFileRepository) GetByUID(ctx context.Context, assetUID, uid string) (*domain.AssetFile, error) {
	var file domain.AssetFile
	err := r.collection.FindOne(ctx, notDeleted(bson.M{"asset_uid": assetUID, "uid": uid})).Decode(&file)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAssetFileNotFound
		}
		return nil, fmt.Errorf("failed to get asset file: %w", err)
	}
	return &file, nil
}

func (r *MongoAssetFileRepository) ListByAsset(ctx context.Context, assetUID string, fileType domain.FileType) ([]*domain.AssetFile, error) {
	filter := notDeleted(bson.M{"asset_uid": assetUID})
	if fileType != "" {
		filter["file_type"] = fileType
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_created", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset files: %w", err)
	}
	defer cursor.Close(ctx)

	files := []*domain.AssetFile{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode asset files: %w", err)
	}
	return files, nil
}

func (r *MongoAssetFileRepository) SoftDelete(ctx context.Context, assetUID, uid string) error {
	update := bson.M{"$set": bson.M{"deleted_at": time.Now()}}

	result, err := r.collection.UpdateOne(ctx, notDeleted(bson.M{"asset_uid": assetUID, "uid": uid}), update)
	if err != nil {
		return fmt.Errorf("failed to delete asset file: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrAssetFileNotFound
	}
	return nil
}

// ExistsDuplicate reports whether a live file with the same filename and
// category is already attached to the asset
func (r *MongoAssetFileRepository) ExistsDuplicate(ctx context.Context, assetUID, filename string, fileType domain.FileType) (bool, error) {
	filter := notDeleted(bson.M{
		"asset_uid":         assetUID,
		"file_type":         fileType,
		"metadata.filename": filename,
	})

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up duplicate asset file: %w", err)
	}
	return count > 0, nil
}
