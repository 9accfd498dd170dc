package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderValidate(t *testing.T) {
	valid := Order{
		Type:    OrderComanda,
		OrderID: "C-1",
		Items:   []LineItem{{Description: "Coffee", Quantity: 2}},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		order Order
	}{
		{"missing type", Order{OrderID: "1", Items: []LineItem{}}},
		{"unknown type", Order{Type: "factura", OrderID: "1", Items: []LineItem{}}},
		{"missing order id", Order{Type: OrderCuenta, Items: []LineItem{}}},
		{"blank order id", Order{Type: OrderCuenta, OrderID: "   ", Items: []LineItem{}}},
		{"nil items", Order{Type: OrderComanda, OrderID: "1"}},
		{"item without description", Order{Type: OrderComanda, OrderID: "1",
			Items: []LineItem{{Quantity: 1}}}},
		{"negative quantity", Order{Type: OrderComanda, OrderID: "1",
			Items: []LineItem{{Description: "Coffee", Quantity: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.order.Validate())
		})
	}
}

func TestOrderValidateAllowsEmptyItems(t *testing.T) {
	order := Order{Type: OrderCuenta, OrderID: "R-9", Items: []LineItem{}}
	assert.NoError(t, order.Validate())
}

func TestLineItemQuantityDefaults(t *testing.T) {
	var missing LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"description":"Coffee"}`), &missing))
	assert.Equal(t, 1.0, missing.Quantity)

	var explicit LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"description":"Coffee","quantity":0}`), &explicit))
	assert.Equal(t, 0.0, explicit.Quantity)

	var fractional LineItem
	require.NoError(t, json.Unmarshal([]byte(`{"description":"Coffee","quantity":2.5}`), &fractional))
	assert.Equal(t, 2.5, fractional.Quantity)
}

func TestOrderTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	order := Order{}
	assert.Equal(t, now, order.Timestamp(now))

	created := now.Add(-2 * time.Hour)
	order.CreatedAt = &created
	assert.Equal(t, created, order.Timestamp(now))
}

func TestCopiesNormalize(t *testing.T) {
	tests := []struct {
		payload string
		want    int
	}{
		{`2`, 2},
		{`"3"`, 3},
		{`" 4 "`, 4},
		{`2.9`, 2},
		{`0`, 1},
		{`-5`, 1},
		{`"abc"`, 1},
		{`true`, 1},
		{`null`, 1},
		{`25`, 20},
		{`"100"`, 20},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			var c Copies
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &c))
			assert.Equal(t, tt.want, c.Normalize())
		})
	}
}

func TestCopiesMissingDefaultsToOne(t *testing.T) {
	var order Order
	require.NoError(t, json.Unmarshal([]byte(`{"type":"cuenta","order_id":"1","items":[]}`), &order))
	assert.Equal(t, 1, order.Copies.Normalize())
}

func TestCopiesNeverFailDecoding(t *testing.T) {
	// A garbage copies value must not reject the whole order payload.
	var order Order
	err := json.Unmarshal([]byte(`{"type":"cuenta","order_id":"1","items":[],"copies":{"bad":1}}`), &order)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Copies.Normalize())
}

func TestCopyCount(t *testing.T) {
	assert.Equal(t, 3, CopyCount(3).Normalize())
	assert.Equal(t, 1, CopyCount(0).Normalize())
	assert.Equal(t, 20, CopyCount(99).Normalize())
}
