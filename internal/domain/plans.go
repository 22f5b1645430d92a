package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Plan identifiers.
const (
	PlanLoja              = "loja"
	PlanAgroconectaBasico = "agroconecta_basico"
	PlanFretesAvancado    = "fretes_avancado"
)

// Plan is a subscription plan from the static catalog. Prices are monthly, in BRL.
type Plan struct {
	ID             string
	Name           string
	Price          decimal.Decimal
	LimitAds       *int // nil means unlimited
	LimitShipments *int // nil means unlimited, otherwise per calendar month
	Features       []string
}

// PlanView is the public JSON representation of a plan.
type PlanView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Price          float64  `json:"price"`
	LimitAds       *int     `json:"limitAds"`
	LimitShipments *int     `json:"limitShipments"`
	Features       []string `json:"features"`
	PriceFormatted string   `json:"priceFormatted"`
}

func limit(n int) *int { return &n }

var catalog = []Plan{
	{
		ID:             PlanLoja,
		Name:           "Loja",
		Price:          decimal.RequireFromString("25.00"),
		LimitAds:       limit(3),
		LimitShipments: nil,
		Features:       []string{"Até 3 anúncios", "Suporte básico"},
	},
	{
		ID:             PlanAgroconectaBasico,
		Name:           "AgroConecta Básico",
		Price:          decimal.RequireFromString("50.00"),
		LimitAds:       nil,
		LimitShipments: nil,
		Features:       []string{"Anúncios ilimitados", "Fretes ilimitados", "Chat privado (GPT completo)"},
	},
	{
		ID:             PlanFretesAvancado,
		Name:           "Fretes Avançado",
		Price:          decimal.RequireFromString("149.00"),
		LimitAds:       nil,
		LimitShipments: limit(30),
		Features:       []string{"Anúncios ilimitados", "Até 30 fretes/mês", "Chat privado (GPT completo)", "Analytics avançados"},
	},
}

// AvailablePlans returns all plans in catalog order.
func AvailablePlans() []Plan {
	plans := make([]Plan, len(catalog))
	copy(plans, catalog)
	return plans
}

// LookupPlan returns the plan for a given ID.
func LookupPlan(id string) (Plan, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// PriceCents returns the price in centavos, as charged by card processors.
func (p Plan) PriceCents() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}

// PriceWei returns the price scaled to 18 decimals. The BRL amount is taken
// 1:1 as a native-token amount.
func (p Plan) PriceWei() *big.Int {
	return p.Price.Shift(18).BigInt()
}

// UserPlan builds the plan subdocument stored on a user when this plan is activated.
func (p Plan) UserPlan(expiresAt time.Time) UserPlan {
	return UserPlan{
		Type:           p.ID,
		Status:         PlanStatusActive,
		LimitAds:       copyLimit(p.LimitAds),
		LimitShipments: copyLimit(p.LimitShipments),
		ExpiresAt:      &expiresAt,
	}
}

// View returns the public JSON representation.
func (p Plan) View() PlanView {
	return PlanView{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price.InexactFloat64(),
		LimitAds:       copyLimit(p.LimitAds),
		LimitShipments: copyLimit(p.LimitShipments),
		Features:       append([]string(nil), p.Features...),
		PriceFormatted: FormatBRL(p.Price),
	}
}

// FormatBRL renders an amount the way the storefront shows it, e.g. "R$ 149,00".
func FormatBRL(amount decimal.Decimal) string {
	return "R$ " + strings.Replace(amount.StringFixed(2), ".", ",", 1)
}

func copyLimit(l *int) *int {
	if l == nil {
		return nil
	}
	v := *l
	return &v
}
