package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/repository"
	"github.com/agroisync/backend/pkg/crypto"
	"github.com/go-playground/validator/v10"
)

// ShipmentService manages freight offers and enforces plan quotas.
type ShipmentService struct {
	store    repository.Store
	sealer   *crypto.Sealer
	loc      *time.Location
	validate *validator.Validate
	now      func() time.Time
}

// NewShipmentService creates a new ShipmentService. Monthly quotas reset at
// midnight on the first day of the month in loc.
func NewShipmentService(store repository.Store, sealer *crypto.Sealer, loc *time.Location) *ShipmentService {
	if loc == nil {
		loc = time.UTC
	}
	return &ShipmentService{
		store:    store,
		sealer:   sealer,
		loc:      loc,
		validate: validator.New(),
		now:      time.Now,
	}
}

type shipmentPublicFields struct {
	RouteFrom     string `validate:"required"`
	RouteTo       string `validate:"required"`
	EstimatedDays int    `validate:"gt=0"`
}

type shipmentPrivateFields struct {
	FreightPrice float64 `validate:"gt=0"`
	WeightKg     float64 `validate:"gt=0"`
}

// CheckFreightLimits decides whether userID may create another shipment.
func (s *ShipmentService) CheckFreightLimits(ctx context.Context, userID string) error {
	u, err := s.store.Users().FindBySubject(ctx, userID)
	if err != nil {
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	if u == nil {
		return domain.ErrForbidden(domain.CodeUserNotFound, "Usuário não encontrado")
	}

	now := s.now()
	if !u.Plan.ActiveAt(now) {
		return domain.ErrForbidden(domain.CodePlanInactive, "Plano inativo. Ative um plano para criar fretes.")
	}

	limit := u.Plan.LimitShipments
	plan, ok := domain.LookupPlan(u.Plan.Type)
	if ok {
		limit = plan.LimitShipments
	}
	if limit == nil {
		return nil
	}

	count, err := s.store.Shipments().CountCreatedSince(ctx, userID, monthStart(now, s.loc))
	if err != nil {
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	if count >= int64(*limit) {
		return domain.ErrForbidden(domain.CodeLimitExceeded,
			fmt.Sprintf("Limite de %d fretes/mês atingido para o plano %s.", *limit, plan.Name))
	}
	return nil
}

func monthStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// Create validates req and stores a new shipment owned by ownerID. The caller
// must have passed CheckFreightLimits.
func (s *ShipmentService) Create(ctx context.Context, ownerID string, req *domain.CreateShipmentRequest) (*domain.Shipment, error) {
	var pub shipmentPublicFields
	if req.Public != nil {
		pub = shipmentPublicFields{
			RouteFrom:     domain.TrimOrEmpty(req.Public.RouteFrom),
			RouteTo:       domain.TrimOrEmpty(req.Public.RouteTo),
			EstimatedDays: derefInt(req.Public.EstimatedDays),
		}
	}
	if err := s.validate.Struct(pub); err != nil {
		return nil, domain.ErrBadRequest(domain.CodeMissingFields,
			"Dados públicos obrigatórios: rota de origem, destino e dias estimados")
	}

	var priv shipmentPrivateFields
	if req.Private != nil {
		priv = shipmentPrivateFields{
			FreightPrice: derefFloat(req.Private.FreightPrice),
			WeightKg:     derefFloat(req.Private.WeightKg),
		}
	}
	if err := s.validate.Struct(priv); err != nil {
		return nil, domain.ErrBadRequest(domain.CodeMissingFields,
			"Dados privados obrigatórios: preço do frete e peso")
	}

	now := s.now()
	sh := &domain.Shipment{
		ID:      domain.NewShipmentID(),
		OwnerID: ownerID,
		Public: domain.ShipmentPublic{
			RouteFrom:     pub.RouteFrom,
			RouteTo:       pub.RouteTo,
			EstimatedDays: pub.EstimatedDays,
		},
		Private: domain.ShipmentPrivate{
			FreightPrice:  priv.FreightPrice,
			WeightKg:      priv.WeightKg,
			InvoiceNumber: domain.TrimOrEmpty(req.Private.InvoiceNumber),
			Notes:         domain.TrimOrEmpty(req.Private.Notes),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.save(ctx, sh, s.store.Shipments().Create); err != nil {
		return nil, err
	}
	return sh, nil
}

// Get returns a shipment as seen by viewerID.
func (s *ShipmentService) Get(ctx context.Context, viewerID, id string) (interface{}, error) {
	sh, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return sh.VisibleTo(viewerID), nil
}

// List returns shipments newest first as seen by viewerID, optionally only
// the viewer's own.
func (s *ShipmentService) List(ctx context.Context, viewerID string, onlyMine bool) ([]interface{}, error) {
	owner := ""
	if onlyMine {
		owner = viewerID
	}
	shipments, err := s.store.Shipments().List(ctx, owner)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}

	out := make([]interface{}, 0, len(shipments))
	for _, sh := range shipments {
		if sh.OwnerID == viewerID {
			if err := s.open(sh); err != nil {
				return nil, domain.ErrInternal("Erro interno do servidor", err)
			}
		}
		out = append(out, sh.VisibleTo(viewerID))
	}
	return out, nil
}

// Update applies the provided non-empty fields of req to a shipment owned by ownerID.
func (s *ShipmentService) Update(ctx context.Context, ownerID, id string, req *domain.UpdateShipmentRequest) (*domain.Shipment, error) {
	sh, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.OwnerID != ownerID {
		return nil, errShipmentNotFound()
	}

	if p := req.Public; p != nil {
		if v := domain.TrimOrEmpty(p.RouteFrom); v != "" {
			sh.Public.RouteFrom = v
		}
		if v := domain.TrimOrEmpty(p.RouteTo); v != "" {
			sh.Public.RouteTo = v
		}
		if v := derefInt(p.EstimatedDays); v != 0 {
			sh.Public.EstimatedDays = v
		}
	}
	if p := req.Private; p != nil {
		if v := derefFloat(p.FreightPrice); v != 0 {
			sh.Private.FreightPrice = v
		}
		if v := derefFloat(p.WeightKg); v != 0 {
			sh.Private.WeightKg = v
		}
		if p.InvoiceNumber != nil {
			sh.Private.InvoiceNumber = domain.TrimOrEmpty(p.InvoiceNumber)
		}
		if p.Notes != nil {
			sh.Private.Notes = domain.TrimOrEmpty(p.Notes)
		}
	}

	if err := s.validate.Struct(shipmentPublicFields{
		RouteFrom:     sh.Public.RouteFrom,
		RouteTo:       sh.Public.RouteTo,
		EstimatedDays: sh.Public.EstimatedDays,
	}); err != nil {
		return nil, domain.ErrBadRequest(domain.CodeInvalidData, "Dias estimados devem ser maiores que zero")
	}
	if err := s.validate.Struct(shipmentPrivateFields{
		FreightPrice: sh.Private.FreightPrice,
		WeightKg:     sh.Private.WeightKg,
	}); err != nil {
		return nil, domain.ErrBadRequest(domain.CodeInvalidData, "Preço do frete e peso devem ser maiores que zero")
	}
	sh.UpdatedAt = s.now()

	err = s.save(ctx, sh, func(ctx context.Context, sealed *domain.Shipment) error {
		ok, err := s.store.Shipments().Update(ctx, sealed)
		if err != nil {
			return err
		}
		if !ok {
			return errShipmentNotFound()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sh, nil
}

// Delete removes a shipment owned by ownerID.
func (s *ShipmentService) Delete(ctx context.Context, ownerID, id string) error {
	if !domain.ValidShipmentID(id) {
		return errInvalidShipmentID()
	}
	ok, err := s.store.Shipments().Delete(ctx, id, ownerID)
	if err != nil {
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	if !ok {
		return errShipmentNotFound()
	}
	return nil
}

func (s *ShipmentService) find(ctx context.Context, id string) (*domain.Shipment, error) {
	if !domain.ValidShipmentID(id) {
		return nil, errInvalidShipmentID()
	}
	sh, err := s.store.Shipments().FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	if sh == nil {
		return nil, errShipmentNotFound()
	}
	if err := s.open(sh); err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	return sh, nil
}

// save seals the private free-text fields on a copy and hands it to write.
func (s *ShipmentService) save(ctx context.Context, sh *domain.Shipment, write func(context.Context, *domain.Shipment) error) error {
	sealed := *sh
	var err error
	if sealed.Private.InvoiceNumber, err = s.sealer.Seal(sh.Private.InvoiceNumber); err != nil {
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	if sealed.Private.Notes, err = s.sealer.Seal(sh.Private.Notes); err != nil {
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	if err := write(ctx, &sealed); err != nil {
		if _, ok := domain.AsAppError(err); ok {
			return err
		}
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	return nil
}

func (s *ShipmentService) open(sh *domain.Shipment) error {
	var err error
	if sh.Private.InvoiceNumber, err = s.sealer.Open(sh.Private.InvoiceNumber); err != nil {
		return err
	}
	sh.Private.Notes, err = s.sealer.Open(sh.Private.Notes)
	return err
}

func errShipmentNotFound() *domain.AppError {
	return domain.ErrNotFound(domain.CodeShipmentNotFound, "Frete não encontrado")
}

func errInvalidShipmentID() *domain.AppError {
	return domain.ErrBadRequest(domain.CodeInvalidID, "ID inválido")
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
