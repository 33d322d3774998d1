package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaleID_JSONShapeIsPreserved(t *testing.T) {
	tests := []struct {
		name  string
		input string
		value string
	}{
		{name: "Number", input: `42`, value: "42"},
		{name: "String", input: `"42"`, value: "42"},
		{name: "UUIDString", input: `"5f0c2d3e-8a41-4a9b-9d4f-0c3b7a1e2f10"`, value: "5f0c2d3e-8a41-4a9b-9d4f-0c3b7a1e2f10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id SaleID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.value, id.String())
			assert.NoError(t, id.Validate())

			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestSaleID_RejectsNonIntegerNumbers(t *testing.T) {
	var id SaleID
	assert.Error(t, json.Unmarshal([]byte(`4.2`), &id))
	assert.Error(t, json.Unmarshal([]byte(`-1`), &id))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
}

func TestSaleID_NullIsZero(t *testing.T) {
	id := NewSaleID("x")
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.True(t, id.IsZero())
	assert.Error(t, id.Validate())
}

func TestSaleID_Validate(t *testing.T) {
	assert.NoError(t, NewSaleID("sale_42-A").Validate())
	assert.Error(t, NewSaleID("").Validate())
	assert.Error(t, NewSaleID("42 OR 1=1").Validate())
	assert.Error(t, NewSaleID("42&id=eq.43").Validate())
}

func TestPaymentID_UnmarshalJSON(t *testing.T) {
	var body struct {
		Data struct {
			ID PaymentID `json:"id"`
		} `json:"data"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":"1319476421"}}`), &body))
	assert.Equal(t, PaymentID("1319476421"), body.Data.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":1319476421}}`), &body))
	assert.Equal(t, PaymentID("1319476421"), body.Data.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":null}}`), &body))
	assert.Empty(t, body.Data.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"data":{"id":{}}}`), &body))
}

func TestPaymentID_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(PaymentID("1319476421"))
	require.NoError(t, err)
	assert.Equal(t, `1319476421`, string(out))

	out, err = json.Marshal(PaymentID("mock-7"))
	require.NoError(t, err)
	assert.Equal(t, `"mock-7"`, string(out))

	out, err = json.Marshal(PaymentID("0"))
	require.NoError(t, err)
	assert.Equal(t, `0`, string(out))

	out, err = json.Marshal(PaymentID("0123"))
	require.NoError(t, err)
	assert.Equal(t, `"0123"`, string(out))

	var back struct {
		ID PaymentID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":`+string(out)+`}`), &back))
	assert.Equal(t, PaymentID("0123"), back.ID)
}
