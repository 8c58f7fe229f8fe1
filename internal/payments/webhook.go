package payments

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	gatewayCaptured      = "captured"
)

// GatewayEvent is the part of a gateway webhook the workflow acts on.
type GatewayEvent struct {
	Event             string
	ExternalPaymentID string
	ExternalOrderID   string
	Status            string
}

type paymentEntity struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// ParseGatewayEvent accepts the payment entity either directly under
// payload.payment, wrapped as payload.payment.entity, or under a literal
// "payment.entity" key.
func ParseGatewayEvent(body []byte) (GatewayEvent, error) {
	var env struct {
		Event   string                     `json:"event"`
		Payload map[string]json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return GatewayEvent{}, fmt.Errorf("decode webhook: %w", err)
	}
	ev := GatewayEvent{Event: env.Event}
	if env.Event != EventPaymentCaptured {
		return ev, nil
	}

	entity, err := findPaymentEntity(env.Payload)
	if err != nil {
		return GatewayEvent{}, err
	}
	ev.ExternalPaymentID = entity.ID
	ev.ExternalOrderID = entity.OrderID
	ev.Status = entity.Status
	return ev, nil
}

func findPaymentEntity(payload map[string]json.RawMessage) (paymentEntity, error) {
	if raw, ok := payload["payment"]; ok {
		var wrapped struct {
			Entity *paymentEntity `json:"entity"`
			paymentEntity
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return paymentEntity{}, fmt.Errorf("decode payment: %w", err)
		}
		if wrapped.Entity != nil {
			return *wrapped.Entity, nil
		}
		if wrapped.paymentEntity.OrderID != "" {
			return wrapped.paymentEntity, nil
		}
	}
	if raw, ok := payload["payment.entity"]; ok {
		var e paymentEntity
		if err := json.Unmarshal(raw, &e); err != nil {
			return paymentEntity{}, fmt.Errorf("decode payment.entity: %w", err)
		}
		return e, nil
	}
	return paymentEntity{}, fmt.Errorf("webhook payload has no payment entity")
}

// MockEvent is the simulator's callback body.
type MockEvent struct {
	OrderID   string `json:"orderId" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=SUCCESS FAILED"`
	PaymentID string `json:"paymentId"`
}
