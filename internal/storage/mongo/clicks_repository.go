package mongo

import (
	"context"
	"time"

	"github.com/IgorGrieder/atalho/internal/infrastructure/db"
	"github.com/IgorGrieder/atalho/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClicksRepository is the append-only click log. Clicks are never updated or
// deleted here, and a click may outlive its link.
type ClicksRepository struct {
	coll *mongo.Collection
}

type clickDoc struct {
	LinkID    primitive.ObjectID `bson:"linkId"`
	Timestamp time.Time          `bson:"timestamp"`
	IPAddress string             `bson:"ipAddress,omitempty"`
	UserAgent string             `bson:"userAgent,omitempty"`
}

func NewClicksRepository(m *db.Mongo) (*ClicksRepository, error) {
	repo := &ClicksRepository{coll: m.Collection("clicks")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "linkId", Value: 1}},
			Options: options.Index().SetName("linkId"),
		},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("timestamp"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *ClicksRepository) Append(ctx context.Context, click *links.Click) error {
	oid, err := primitive.ObjectIDFromHex(click.LinkID)
	if err != nil {
		return err
	}

	doc := clickDoc{
		LinkID:    oid,
		Timestamp: click.Timestamp.UTC(),
		IPAddress: click.IPAddress,
		UserAgent: click.UserAgent,
	}

	_, err = r.coll.InsertOne(ctx, doc)
	return err
}

// DailyCounts groups the link's clicks inside [from, to] by UTC calendar day,
// ascending. Days with no clicks are absent from the result.
func (r *ClicksRepository) DailyCounts(ctx context.Context, linkID string, from, to time.Time) ([]links.DailyCount, error) {
	oid, err := primitive.ObjectIDFromHex(linkID)
	if err != nil {
		return nil, links.ErrNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"linkId":    oid,
			"timestamp": bson.M{"$gte": from.UTC(), "$lte": to.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$timestamp",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []links.DailyCount
	for cur.Next(ctx) {
		var row struct {
			Date  string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, links.DailyCount{Date: row.Date, Count: row.Count})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentCounts groups every click of the link by its raw user-agent string.
// Classification into families happens in the aggregator, not here.
func (r *ClicksRepository) AgentCounts(ctx context.Context, linkID string) ([]links.AgentCount, error) {
	oid, err := primitive.ObjectIDFromHex(linkID)
	if err != nil {
		return nil, links.ErrNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"linkId": oid}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$userAgent",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []links.AgentCount
	for cur.Next(ctx) {
		var row struct {
			UserAgent string `bson:"_id"`
			Count     int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, links.AgentCount{UserAgent: row.UserAgent, Count: row.Count})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalsByLink returns all-time click totals for the given links. Links with
// no clicks are absent from the map.
func (r *ClicksRepository) TotalsByLink(ctx context.Context, linkIDs []string) (map[string]int64, error) {
	oids := make([]primitive.ObjectID, 0, len(linkIDs))
	for _, id := range linkIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}

	totals := make(map[string]int64, len(oids))
	if len(oids) == 0 {
		return totals, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"linkId": bson.M{"$in": oids}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$linkId",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			LinkID primitive.ObjectID `bson:"_id"`
			Count  int64              `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		totals[row.LinkID.Hex()] = row.Count
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}
