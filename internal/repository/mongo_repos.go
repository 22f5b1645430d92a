package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository reads users from the users collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// FindBySubject returns the user with the given subject, or nil if none exists.
func (r *MongoUserRepository) FindBySubject(ctx context.Context, subject string) (*domain.User, error) {
	var d userDoc
	err := r.coll.FindOne(ctx, bson.M{"cognitoSub": subject}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return d.toDomain(), nil
}

// CountActivePlans counts users holding an active plan.
func (r *MongoUserRepository) CountActivePlans(ctx context.Context) (int64, error) {
	filter := bson.M{
		"plan.status": domain.PlanStatusActive,
		"$or": bson.A{
			bson.M{"plan.expiresAt": bson.M{"$exists": false}},
			bson.M{"plan.expiresAt": bson.M{"$gt": time.Now()}},
		},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count active plans: %w", err)
	}
	return n, nil
}

// ExpirePlans deactivates plans whose end date has passed and returns how many changed.
func (r *MongoUserRepository) ExpirePlans(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"plan.status": domain.PlanStatusActive, "plan.expiresAt": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"plan.status": domain.PlanStatusExpired, "updatedAt": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire plans: %w", err)
	}
	return res.ModifiedCount, nil
}

// MongoPaymentRepository stores payments in the payments collection.
type MongoPaymentRepository struct {
	coll *mongo.Collection
}

// Create inserts a payment.
func (r *MongoPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	d, err := newPaymentDoc(p)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) && p.ProviderRef.TxHash != "" {
			return ErrDuplicateTxHash
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// FindByTxHash returns the payment for a transaction hash, or nil if none exists.
func (r *MongoPaymentRepository) FindByTxHash(ctx context.Context, hash string) (*domain.Payment, error) {
	var d paymentDoc
	err := r.coll.FindOne(ctx, bson.M{"providerRef.txHash": hash}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return d.toDomain()
}

// ListByUser returns a user's payments, newest first.
func (r *MongoPaymentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.find(ctx, bson.M{"userId": userID}, opts)
}

// ListRecent returns the latest payments across all users.
func (r *MongoPaymentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *MongoPaymentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Payment, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	var docs []paymentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}

	payments := make([]*domain.Payment, 0, len(docs))
	for i := range docs {
		p, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// CountByStatus returns the number of payments per status.
func (r *MongoPaymentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "n", Value: bson.M{"$sum": 1}}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	var rows []struct {
		Status string `bson:"_id"`
		N      int64  `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode payment counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

// MarkCheckoutFailed fails a pending checkout. It reports whether a document changed.
func (r *MongoPaymentRepository) MarkCheckoutFailed(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"providerRef.stripeSessionId": sessionID, "status": domain.PaymentPending},
		bson.M{"$set": bson.M{"status": domain.PaymentFailed, "updatedAt": at}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// MongoShipmentRepository stores shipments in the shipments collection.
type MongoShipmentRepository struct {
	coll *mongo.Collection
}

func (r *MongoShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	if _, err := r.coll.InsertOne(ctx, newShipmentDoc(s)); err != nil {
		return fmt.Errorf("failed to create shipment: %w", err)
	}
	return nil
}

func (r *MongoShipmentRepository) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	var d shipmentDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return d.toDomain(), nil
}

func (r *MongoShipmentRepository) List(ctx context.Context, ownerID string) ([]*domain.Shipment, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["ownerId"] = ownerID
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	var docs []shipmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode shipments: %w", err)
	}

	shipments := make([]*domain.Shipment, 0, len(docs))
	for i := range docs {
		shipments = append(shipments, docs[i].toDomain())
	}
	return shipments, nil
}

func (r *MongoShipmentRepository) Update(ctx context.Context, s *domain.Shipment) (bool, error) {
	d := newShipmentDoc(s)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": s.ID, "ownerId": s.OwnerID},
		bson.M{"$set": bson.M{"public": d.Public, "private": d.Private, "updatedAt": s.UpdatedAt}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update shipment: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *MongoShipmentRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return false, fmt.Errorf("failed to delete shipment: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoShipmentRepository) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"ownerId": ownerID, "createdAt": bson.M{"$gte": since}})
	if err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return n, nil
}

func (r *MongoShipmentRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return n, nil
}

// MongoActivator runs plan activations in a multi-document transaction.
type MongoActivator struct {
	client *mongo.Client
	db     *mongo.Database
}

func (a *MongoActivator) ActivateWithPayment(ctx context.Context, act *domain.Activation) error {
	if act.Payment == nil {
		return errors.New("activation has no payment")
	}
	doc, err := newPaymentDoc(act.Payment)
	if err != nil {
		return err
	}

	err = a.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := a.db.Collection(paymentsCollection).InsertOne(sc, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrDuplicateTxHash
			}
			return err
		}
		return a.upsertPlan(sc, act)
	})
	if errors.Is(err, ErrDuplicateTxHash) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to activate plan: %w", err)
	}
	return nil
}

func (a *MongoActivator) CompleteCheckout(ctx context.Context, sessionID string, act *domain.Activation) error {
	err := a.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := a.db.Collection(paymentsCollection).UpdateOne(sc,
			bson.M{"providerRef.stripeSessionId": sessionID, "status": domain.PaymentPending},
			bson.M{"$set": bson.M{"status": domain.PaymentSucceeded, "updatedAt": act.At}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrPaymentNotPending
		}
		return a.upsertPlan(sc, act)
	})
	if errors.Is(err, ErrPaymentNotPending) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to complete checkout: %w", err)
	}
	return nil
}

func (a *MongoActivator) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := a.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (a *MongoActivator) upsertPlan(ctx context.Context, act *domain.Activation) error {
	set := bson.M{
		"plan": userPlanDoc{
			Type:           act.Plan.Type,
			Status:         act.Plan.Status,
			LimitAds:       act.Plan.LimitAds,
			LimitShipments: act.Plan.LimitShipments,
			ExpiresAt:      act.Plan.ExpiresAt,
		},
		"updatedAt": act.At,
	}
	onInsert := bson.M{"createdAt": act.At}
	if act.Email != "" {
		set["email"] = act.Email
	} else {
		onInsert["email"] = ""
	}

	_, err := a.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"cognitoSub": act.UserID},
		bson.M{"$set": set, "$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to update user plan: %w", err)
	}
	return nil
}
