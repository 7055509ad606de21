package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wte-api-server/internal/models"
)

const (
	usersCollection    = "admin_users"
	sitesCollection    = "sites"
	reportsCollection  = "waste_reports"
	countersCollection = "counters"
)

// MongoStore implements Store on MongoDB. Integer ids are assigned from a
// counters collection so they stay monotonic like the relational backend.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore wraps a connected client and database.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, db: db}
}

// EnsureIndexes creates the unique and ordering indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create admin email index: %w", err)
	}

	_, err = s.db.Collection(sitesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create site name index: %w", err)
	}

	_, err = s.db.Collection(reportsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create report index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return counter.Seq, nil
}

// --- Users ---

func (s *MongoStore) CreateUser(ctx context.Context, user *models.AdminUser) error {
	id, err := s.nextID(ctx, usersCollection)
	if err != nil {
		return err
	}
	user.ID = id
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, mapMongoError(err)
	}
	return &user, nil
}

// --- Sites ---

func (s *MongoStore) ListSites(ctx context.Context) ([]models.Site, error) {
	cursor, err := s.db.Collection(sitesCollection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mapMongoError(err)
	}
	defer cursor.Close(ctx)

	sites := []models.Site{}
	if err := cursor.All(ctx, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (s *MongoStore) FindSite(ctx context.Context, id int64) (*models.Site, error) {
	var site models.Site
	if err := s.db.Collection(sitesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&site); err != nil {
		return nil, mapMongoError(err)
	}
	return &site, nil
}

func (s *MongoStore) EnsureSite(ctx context.Context, name string) (*models.Site, error) {
	var site models.Site
	err := s.db.Collection(sitesCollection).FindOne(ctx, bson.M{"name": name}).Decode(&site)
	if err == nil {
		return &site, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	id, err := s.nextID(ctx, sitesCollection)
	if err != nil {
		return nil, err
	}
	site = models.Site{ID: id, Name: name}
	if _, err := s.db.Collection(sitesCollection).InsertOne(ctx, site); err != nil {
		return nil, mapMongoError(err)
	}
	return &site, nil
}

// --- Reports ---

func (s *MongoStore) CreateReport(ctx context.Context, report *models.WasteReport) error {
	id, err := s.nextID(ctx, reportsCollection)
	if err != nil {
		return err
	}
	report.ID = id
	if _, err := s.db.Collection(reportsCollection).InsertOne(ctx, report); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (s *MongoStore) FindReport(ctx context.Context, id int64) (*models.WasteReport, error) {
	var report models.WasteReport
	if err := s.db.Collection(reportsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&report); err != nil {
		return nil, mapMongoError(err)
	}
	if err := s.joinSites(ctx, []*models.WasteReport{&report}); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MongoStore) ListReports(ctx context.Context, filter models.ReportFilter) ([]models.WasteReport, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "status", Value: 1},
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := s.db.Collection(reportsCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, mapMongoError(err)
	}
	defer cursor.Close(ctx)

	reports := []models.WasteReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}

	ptrs := make([]*models.WasteReport, len(reports))
	for i := range reports {
		ptrs[i] = &reports[i]
	}
	if err := s.joinSites(ctx, ptrs); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *MongoStore) UpdateReportStatus(ctx context.Context, id int64, from, to models.Status) error {
	res, err := s.db.Collection(reportsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return s.missingOr(ctx, id, ErrStatusMismatch)
}

func (s *MongoStore) UpdateReportPhoto(ctx context.Context, id int64, url string) error {
	res, err := s.db.Collection(reportsCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"photoUrl": url}},
	)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) CountReportsByStatus(ctx context.Context) (models.StatusSummary, error) {
	var summary models.StatusSummary
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.db.Collection(reportsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return summary, mapMongoError(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.Status `bson:"_id"`
		Count  int           `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return summary, err
	}
	for _, row := range rows {
		summary.Add(row.Status, row.Count)
	}
	return summary, nil
}

// joinSites attaches the referenced site to every report with one query.
func (s *MongoStore) joinSites(ctx context.Context, reports []*models.WasteReport) error {
	if len(reports) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(reports))
	seen := make(map[int64]bool, len(reports))
	for _, r := range reports {
		if !seen[r.SiteID] {
			seen[r.SiteID] = true
			ids = append(ids, r.SiteID)
		}
	}

	cursor, err := s.db.Collection(sitesCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return mapMongoError(err)
	}
	defer cursor.Close(ctx)

	var sites []models.Site
	if err := cursor.All(ctx, &sites); err != nil {
		return err
	}
	byID := make(map[int64]*models.Site, len(sites))
	for i := range sites {
		byID[sites[i].ID] = &sites[i]
	}
	for _, r := range reports {
		r.Site = byID[r.SiteID]
	}
	return nil
}

func (s *MongoStore) missingOr(ctx context.Context, id int64, whenExists error) error {
	n, err := s.db.Collection(reportsCollection).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return mapMongoError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return whenExists
}

func mapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
