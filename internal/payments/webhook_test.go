package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGatewayEventShapes(t *testing.T) {
	bodies := map[string]string{
		"flat":           `{"event":"payment.captured","payload":{"payment":{"id":"pay_1","order_id":"order_1","status":"captured"}}}`,
		"entity":         `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured"}}}}`,
		"payment.entity": `{"event":"payment.captured","payload":{"payment.entity":{"id":"pay_1","order_id":"order_1","status":"captured"}}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			ev, err := ParseGatewayEvent([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, GatewayEvent{
				Event:             EventPaymentCaptured,
				ExternalPaymentID: "pay_1",
				ExternalOrderID:   "order_1",
				Status:            "captured",
			}, ev)
		})
	}
}

func TestParseGatewayEventOtherKinds(t *testing.T) {
	ev, err := ParseGatewayEvent([]byte(`{"event":"refund.created","payload":{"refund":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, "refund.created", ev.Event)
	assert.Empty(t, ev.ExternalOrderID)
}

func TestParseGatewayEventErrors(t *testing.T) {
	_, err := ParseGatewayEvent([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseGatewayEvent([]byte(`{"event":"payment.captured","payload":{}}`))
	assert.Error(t, err)
}

func TestSigner(t *testing.T) {
	s := NewSigner("secret")
	sig := s.Sign("order_1", "pay_1")

	assert.Equal(t, "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb", sig)
	assert.True(t, s.Verify("order_1", "pay_1", sig))
	assert.False(t, s.Verify("order_1", "pay_2", sig))
	assert.False(t, s.Verify("order_1", "pay_1", ""))
	assert.False(t, NewSigner("other").Verify("order_1", "pay_1", sig))
	assert.False(t, NewSigner("").Verify("order_1", "pay_1", NewSigner("").Sign("order_1", "pay_1")))
}

func TestVerifyBody(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	s := NewSigner("whsec")

	assert.True(t, s.VerifyBody(body, "4673dd707ef4c41b987cb7fefe1583142dc702388c93145b7814b9ad3d3c183e"))
	assert.False(t, s.VerifyBody([]byte(`{"event":"payment.failed"}`), "4673dd707ef4c41b987cb7fefe1583142dc702388c93145b7814b9ad3d3c183e"))
	assert.False(t, s.VerifyBody(body, ""))
	assert.False(t, NewSigner("").VerifyBody(body, "00"))
}
