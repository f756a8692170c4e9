package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/segmentio/kafka-go"
)

func Headers(env orders.Envelope) []kafka.Header {
	return []kafka.Header{
		{Key: orders.HeaderEventType, Value: []byte(env.EventType)},
		{Key: orders.HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
	}
}

func DecodeEnvelope(b []byte) (orders.Envelope, error) {
	var env orders.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return orders.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// UnwrapPayload decodes the event specific part of an envelope.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
