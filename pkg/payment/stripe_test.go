package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, body string) *webhook.SignedPayload {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
}

func TestStripeGateway_ParseWebhook_CheckoutCompleted(t *testing.T) {
	g := NewStripeGateway("sk_test_unused", testWebhookSecret)
	body := `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_123",
			"object": "checkout.session",
			"metadata": {"cognitoSub": "user-1", "planType": "loja"}
		}}
	}`
	signed := signedPayload(t, body)

	ev, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "cs_test_123", ev.SessionID)
	assert.Equal(t, "user-1", ev.Metadata[MetaSubject])
	assert.Equal(t, "loja", ev.Metadata[MetaPlanType])
}

func TestStripeGateway_ParseWebhook_OtherEvent(t *testing.T) {
	g := NewStripeGateway("sk_test_unused", testWebhookSecret)
	signed := signedPayload(t, `{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`)

	ev, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "invoice.paid", ev.Type)
	assert.Empty(t, ev.SessionID)
}

func TestStripeGateway_ParseWebhook_BadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test_unused", testWebhookSecret)
	body := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := g.ParseWebhook(body, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
