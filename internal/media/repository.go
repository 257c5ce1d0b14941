package media

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound          = errors.New("media record not found")
	ErrDuplicateFilename = errors.New("filename already exists")
)

// ListQuery carries the filters and pagination of a listing request.
type ListQuery struct {
	Search string
	Type   string // "image" or "document", empty for all
	Page   int
	Limit  int
}

// Stats aggregates the active record set.
type Stats struct {
	TotalSize     int64 `bson:"totalSize" json:"totalSize"`
	TotalFiles    int64 `bson:"totalFiles" json:"totalFiles"`
	ImageCount    int64 `bson:"imageCount" json:"imageCount"`
	DocumentCount int64 `bson:"documentCount" json:"documentCount"`
}

// ListResult is a page of records plus the total match count and stats.
type ListResult struct {
	Records []Record
	Total   int64
	Stats   Stats
}

// DetailsUpdate holds the mutable descriptive fields. Nil means unchanged.
type DetailsUpdate struct {
	Alt      *string
	Caption  *string
	IsActive *bool
}

type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, record Record) (Record, error)
	FindByFilename(ctx context.Context, filename string, activeOnly bool) (Record, error)
	List(ctx context.Context, query ListQuery) (ListResult, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, update DetailsUpdate) (Record, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(collection *mongo.Collection) Repository {
	return &mongoRepository{collection: collection}
}

func (r *mongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "filename", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "uploadedBy", Value: 1}}},
		{Keys: bson.D{{Key: "mimeType", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *mongoRepository) Create(ctx context.Context, record Record) (Record, error) {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Record{}, ErrDuplicateFilename
		}
		return Record{}, err
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return Record{}, errors.New("unexpected insert id type")
	}
	record.ID = id
	return record, nil
}

func (r *mongoRepository) FindByFilename(ctx context.Context, filename string, activeOnly bool) (Record, error) {
	filter := bson.M{"filename": filename}
	if activeOnly {
		filter["isActive"] = true
	}

	var record Record
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return record, nil
}

func (r *mongoRepository) List(ctx context.Context, query ListQuery) (ListResult, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	skip := int64((page - 1) * limit)

	filter := buildListFilter(query)

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return ListResult{}, err
	}
	defer cur.Close(ctx)

	var records []Record
	if err := cur.All(ctx, &records); err != nil {
		return ListResult{}, err
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return ListResult{}, err
	}

	stats, err := r.aggregateStats(ctx)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{Records: records, Total: total, Stats: stats}, nil
}

func (r *mongoRepository) UpdateDetails(ctx context.Context, id primitive.ObjectID, update DetailsUpdate) (Record, error) {
	set := bson.M{"updatedAt": time.Now()}
	if update.Alt != nil {
		set["alt"] = *update.Alt
	}
	if update.Caption != nil {
		set["caption"] = *update.Caption
	}
	if update.IsActive != nil {
		set["isActive"] = *update.IsActive
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var record Record
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return record, nil
}

func (r *mongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// buildListFilter translates a ListQuery into a Mongo filter. Inactive
// records are always excluded from listings.
func buildListFilter(query ListQuery) bson.M {
	filter := bson.M{"isActive": true}

	if query.Search != "" {
		pattern := regexp.QuoteMeta(query.Search)
		regex := primitive.Regex{Pattern: pattern, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"originalName": regex},
			bson.M{"alt": regex},
			bson.M{"caption": regex},
		}
	}

	switch query.Type {
	case "image":
		filter["mimeType"] = primitive.Regex{Pattern: "^image/"}
	case "document":
		filter["mimeType"] = primitive.Regex{Pattern: "^(application|text)/"}
	}

	return filter
}

func (r *mongoRepository) aggregateStats(ctx context.Context) (Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"totalSize":  bson.M{"$sum": "$size"},
			"totalFiles": bson.M{"$sum": 1},
			"imageCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$regexMatch": bson.M{"input": "$mimeType", "regex": "^image/"}}, 1, 0,
			}}},
			"documentCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$regexMatch": bson.M{"input": "$mimeType", "regex": "^(application|text)/"}}, 1, 0,
			}}},
		}}},
	}

	cur, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return Stats{}, err
	}
	defer cur.Close(ctx)

	var results []Stats
	if err := cur.All(ctx, &results); err != nil {
		return Stats{}, err
	}
	if len(results) == 0 {
		return Stats{}, nil
	}
	return results[0], nil
}
