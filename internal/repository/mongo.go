package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	usersCollection     = "users"
	paymentsCollection  = "payments"
	shipmentsCollection = "shipments"
)

// NewMongo connects to MongoDB and verifies the connection.
func NewMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on, including the
// unique ones that make payment references single-use.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	stringRef := func(field string) *options.IndexOptions {
		return options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string"}})
	}

	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "cognitoSub", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "plan.status", Value: 1}, {Key: "plan.expiresAt", Value: 1}}},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "providerRef.txHash", Value: 1}}, Options: stringRef("providerRef.txHash")},
			{Keys: bson.D{{Key: "providerRef.stripeSessionId", Value: 1}}, Options: stringRef("providerRef.stripeSessionId")},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		shipmentsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// MongoStore is the Store backed by MongoDB.
type MongoStore struct {
	client      *mongo.Client
	users       *MongoUserRepository
	payments    *MongoPaymentRepository
	shipments   *MongoShipmentRepository
	activations *MongoActivator
}

// NewMongoStore binds the repositories to a database.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:      client,
		users:       &MongoUserRepository{coll: db.Collection(usersCollection)},
		payments:    &MongoPaymentRepository{coll: db.Collection(paymentsCollection)},
		shipments:   &MongoShipmentRepository{coll: db.Collection(shipmentsCollection)},
		activations: &MongoActivator{client: client, db: db},
	}
}

func (s *MongoStore) Users() UserRepository         { return s.users }
func (s *MongoStore) Payments() PaymentRepository   { return s.payments }
func (s *MongoStore) Shipments() ShipmentRepository { return s.shipments }
func (s *MongoStore) Activations() PlanActivator    { return s.activations }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type userPlanDoc struct {
	Type           string     `bson:"type"`
	Status         string     `bson:"status"`
	LimitAds       *int       `bson:"limitAds"`
	LimitShipments *int       `bson:"limitShipments"`
	ExpiresAt      *time.Time `bson:"expiresAt,omitempty"`
}

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	CognitoSub string             `bson:"cognitoSub"`
	Email      string             `bson:"email"`
	Plan       *userPlanDoc       `bson:"plan,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		Subject:   d.CognitoSub,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Plan != nil {
		u.Plan = &domain.UserPlan{
			Type:           d.Plan.Type,
			Status:         d.Plan.Status,
			LimitAds:       d.Plan.LimitAds,
			LimitShipments: d.Plan.LimitShipments,
			ExpiresAt:      d.Plan.ExpiresAt,
		}
	}
	return u
}

type providerRefDoc struct {
	StripeSessionID string `bson:"stripeSessionId,omitempty"`
	TxHash          string `bson:"txHash,omitempty"`
}

type paymentDoc struct {
	ID          string               `bson:"_id"`
	UserID      string               `bson:"userId"`
	Method      string               `bson:"method"`
	AmountBRL   primitive.Decimal128 `bson:"amountBRL"`
	PlanType    string               `bson:"planType"`
	Status      string               `bson:"status"`
	ProviderRef providerRefDoc       `bson:"providerRef"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func newPaymentDoc(p *domain.Payment) (*paymentDoc, error) {
	amount, err := primitive.ParseDecimal128(p.AmountBRL.StringFixed(2))
	if err != nil {
		return nil, fmt.Errorf("invalid payment amount: %w", err)
	}
	return &paymentDoc{
		ID:        p.ID,
		UserID:    p.UserID,
		Method:    p.Method,
		AmountBRL: amount,
		PlanType:  p.PlanType,
		Status:    p.Status,
		ProviderRef: providerRefDoc{
			StripeSessionID: p.ProviderRef.StripeSessionID,
			TxHash:          p.ProviderRef.TxHash,
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func (d *paymentDoc) toDomain() (*domain.Payment, error) {
	amount, err := decimal.NewFromString(d.AmountBRL.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", d.AmountBRL.String(), err)
	}
	return &domain.Payment{
		ID:        d.ID,
		UserID:    d.UserID,
		Method:    d.Method,
		AmountBRL: amount,
		PlanType:  d.PlanType,
		Status:    d.Status,
		ProviderRef: domain.ProviderRef{
			StripeSessionID: d.ProviderRef.StripeSessionID,
			TxHash:          d.ProviderRef.TxHash,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type shipmentDoc struct {
	ID      string `bson:"_id"`
	OwnerID string `bson:"ownerId"`
	Public  struct {
		RouteFrom     string `bson:"routeFrom"`
		RouteTo       string `bson:"routeTo"`
		EstimatedDays int    `bson:"estimatedDays"`
	} `bson:"public"`
	Private struct {
		FreightPrice  float64 `bson:"freightPrice"`
		WeightKg      float64 `bson:"weightKg"`
		InvoiceNumber string  `bson:"nfNumber"`
		Notes         string  `bson:"notes"`
	} `bson:"private"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func newShipmentDoc(s *domain.Shipment) *shipmentDoc {
	d := &shipmentDoc{ID: s.ID, OwnerID: s.OwnerID, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	d.Public.RouteFrom = s.Public.RouteFrom
	d.Public.RouteTo = s.Public.RouteTo
	d.Public.EstimatedDays = s.Public.EstimatedDays
	d.Private.FreightPrice = s.Private.FreightPrice
	d.Private.WeightKg = s.Private.WeightKg
	d.Private.InvoiceNumber = s.Private.InvoiceNumber
	d.Private.Notes = s.Private.Notes
	return d
}

func (d *shipmentDoc) toDomain() *domain.Shipment {
	return &domain.Shipment{
		ID:      d.ID,
		OwnerID: d.OwnerID,
		Public: domain.ShipmentPublic{
			RouteFrom:     d.Public.RouteFrom,
			RouteTo:       d.Public.RouteTo,
			EstimatedDays: d.Public.EstimatedDays,
		},
		Private: domain.ShipmentPrivate{
			FreightPrice:  d.Private.FreightPrice,
			WeightKg:      d.Private.WeightKg,
			InvoiceNumber: d.Private.InvoiceNumber,
			Notes:         d.Private.Notes,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
