package domain

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	plans := AvailablePlans()
	require.Len(t, plans, 3)
	assert.Equal(t, []string{PlanLoja, PlanAgroconectaBasico, PlanFretesAvancado},
		[]string{plans[0].ID, plans[1].ID, plans[2].ID})

	fa, ok := LookupPlan(PlanFretesAvancado)
	require.True(t, ok)
	assert.Equal(t, "149", fa.Price.String())
	require.NotNil(t, fa.LimitShipments)
	assert.Equal(t, 30, *fa.LimitShipments)
	assert.Nil(t, fa.LimitAds)

	loja, _ := LookupPlan(PlanLoja)
	assert.Equal(t, 3, *loja.LimitAds)
	assert.Nil(t, loja.LimitShipments)

	_, ok = LookupPlan("Loja")
	assert.False(t, ok, "ids are case sensitive")
}

func TestAvailablePlansIsACopy(t *testing.T) {
	plans := AvailablePlans()
	plans[0].ID = "changed"
	p, ok := LookupPlan(PlanLoja)
	assert.True(t, ok)
	assert.Equal(t, PlanLoja, p.ID)
}

func TestPlanPrices(t *testing.T) {
	fa, _ := LookupPlan(PlanFretesAvancado)
	assert.Equal(t, int64(14900), fa.PriceCents())

	want, _ := new(big.Int).SetString("149000000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(fa.PriceWei()))

	assert.Equal(t, "R$ 149,00", FormatBRL(fa.Price))
	assert.Equal(t, "R$ 25,50", FormatBRL(decimal.RequireFromString("25.5")))
}

func TestPlanViewJSON(t *testing.T) {
	basico, _ := LookupPlan(PlanAgroconectaBasico)
	raw, err := json.Marshal(basico.View())
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 50.0, got["price"])
	assert.Equal(t, "R$ 50,00", got["priceFormatted"])
	assert.Contains(t, got, "limitAds")
	assert.Nil(t, got["limitAds"], "unlimited is null")
	assert.Nil(t, got["limitShipments"])
}

func TestUserPlan(t *testing.T) {
	fa, _ := LookupPlan(PlanFretesAvancado)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	up := fa.UserPlan(PlanExpiry(now))

	assert.Equal(t, PlanStatusActive, up.Status)
	assert.Equal(t, time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC), *up.ExpiresAt)
	assert.True(t, up.ActiveAt(now))
	assert.False(t, up.ActiveAt(*up.ExpiresAt), "expiry instant is no longer active")

	*up.LimitShipments = 1
	assert.Equal(t, 30, *fa.LimitShipments, "limits are copied")

	var none *UserPlan
	assert.False(t, none.ActiveAt(now))
	up.Status = PlanStatusExpired
	assert.False(t, up.ActiveAt(now))
}

func TestMaskDestination(t *testing.T) {
	tests := []struct {
		channel, dest, want string
	}{
		{ChannelSMS, "+5565999998888", "**********8888"},
		{ChannelSMS, "123", "***"},
		{ChannelEmail, "maria@example.com", "ma***@example.com"},
		{ChannelEmail, "a@b.com", "a***@b.com"},
		{ChannelEmail, "nope", "***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskDestination(tt.channel, tt.dest), tt.dest)
	}

	assert.Equal(t, 5*time.Minute, CodeTTL(ChannelSMS))
	assert.Equal(t, 10*time.Minute, CodeTTL(ChannelEmail))
}

func TestNormalizeTxHash(t *testing.T) {
	assert.Equal(t, "0xabc", NormalizeTxHash("  0xABC "))
}

func TestShipmentVisibility(t *testing.T) {
	s := &Shipment{
		ID:      NewShipmentID(),
		OwnerID: "owner",
		Public:  ShipmentPublic{RouteFrom: "Sorriso", RouteTo: "Santos", EstimatedDays: 2},
		Private: ShipmentPrivate{FreightPrice: 10, WeightKg: 1},
	}
	assert.Same(t, s, s.VisibleTo("owner"))

	pub, ok := s.VisibleTo("other").(*PublicShipment)
	require.True(t, ok)
	assert.Equal(t, s.Public, pub.Public)

	assert.True(t, ValidShipmentID(s.ID))
	assert.False(t, ValidShipmentID("123"))
}

func TestAppError(t *testing.T) {
	cause := errors.New("connection reset")
	err := ErrExternal(CodeBlockchainError, "Erro ao validar transação na blockchain", cause)
	assert.ErrorIs(t, err, cause)

	wrapped := errors.Join(errors.New("outer"), err)
	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeBlockchainError, appErr.Code)
	assert.True(t, HasCode(wrapped, CodeBlockchainError))
	assert.False(t, HasCode(cause, CodeBlockchainError))

	assert.Equal(t, http.StatusConflict, ErrConflict(CodeDuplicateTransaction, "x").Status)
	assert.Equal(t, http.StatusTooManyRequests, ErrTooManyRequests(CodeTooManyAttempts, "x").Status)
}
