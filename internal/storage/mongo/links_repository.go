package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/IgorGrieder/atalho/internal/infrastructure/db"
	"github.com/IgorGrieder/atalho/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Slug      string             `bson:"slug"`
	URL       string             `bson:"url"`
	OwnerID   string             `bson:"ownerId"`
	CreatedAt time.Time          `bson:"createdAt"`
	ExpiresAt *time.Time         `bson:"expiresAt,omitempty"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection("links")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_slug"),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("owner_createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

// Insert relies on the unique slug index for the uniqueness invariant: of two
// concurrent inserts with the same slug, mongo accepts exactly one.
func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	doc := linkDoc{
		Slug:      link.Slug,
		URL:       link.URL,
		OwnerID:   link.OwnerID,
		CreatedAt: link.CreatedAt.UTC(),
		ExpiresAt: link.ExpiresAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			link.ID = oid.Hex()
		}
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return links.ErrAliasTaken
	}

	return err
}

func (r *LinksRepository) FindBySlug(ctx context.Context, slug string) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}

	return nil, err
}

func (r *LinksRepository) FindByIDForOwner(ctx context.Context, id, ownerID string) (*links.Link, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, links.ErrNotFound
	}

	var doc linkDoc
	err = r.coll.FindOne(ctx, bson.M{"_id": oid, "ownerId": ownerID}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}

	return nil, err
}

// List pages through the owner's links, newest first. The optional search
// term is matched as a case-insensitive substring of the url or the slug via
// an anchored-nowhere regex; fine at this scale, but a text index would be
// needed before the per-owner link count grows past a few thousand.
func (r *LinksRepository) List(ctx context.Context, in links.ListInput) ([]links.Link, int64, error) {
	filter := bson.M{"ownerId": in.OwnerID}
	if in.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(in.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"url": pattern},
			bson.M{"slug": pattern},
		}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := int64(in.Page-1) * int64(in.Limit)
	cur, err := r.coll.Find(
		ctx,
		filter,
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetSkip(skip).
			SetLimit(int64(in.Limit)),
	)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := make([]links.Link, 0, in.Limit)
	for cur.Next(ctx) {
		var doc linkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, err
		}
		out = append(out, *mapLinkDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func mapLinkDoc(doc linkDoc) *links.Link {
	return &links.Link{
		ID:        doc.ID.Hex(),
		Slug:      doc.Slug,
		URL:       doc.URL,
		OwnerID:   doc.OwnerID,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}
}
