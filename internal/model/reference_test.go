package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pix-service/internal/apperror"
)

func TestSaleReference_RoundTrip(t *testing.T) {
	for _, raw := range []string{"42", "0", "sale_7", "SALE_9", "5f0c2d3e-8a41-4a9b-9d4f-0c3b7a1e2f10"} {
		t.Run(raw, func(t *testing.T) {
			id := NewSaleID(raw)

			got, err := SaleIDFromReference(SaleReference(id))
			require.NoError(t, err)
			assert.Equal(t, id.String(), got.String())
		})
	}
}

func TestSaleReference_Format(t *testing.T) {
	assert.Equal(t, "SALE_42", SaleReference(NewSaleID("42")))
}

func TestSaleIDFromReference_Invalid(t *testing.T) {
	for _, ref := range []string{"", "42", "SALE_", "ORDER_42", "SALE_4 2"} {
		t.Run(ref, func(t *testing.T) {
			_, err := SaleIDFromReference(ref)
			assert.True(t, errors.Is(err, apperror.ErrSaleReference))
		})
	}
}

func TestSaleIDFromDescription(t *testing.T) {
	id, err := SaleIDFromDescription(DefaultDescription(NewSaleID("42")))
	require.NoError(t, err)
	assert.Equal(t, "42", id.String())

	id, err = SaleIDFromDescription("Corte + barba #17 (pix)")
	require.NoError(t, err)
	assert.Equal(t, "17", id.String())

	_, err = SaleIDFromDescription("Corte de cabelo")
	assert.True(t, errors.Is(err, apperror.ErrSaleReference))

	_, err = SaleIDFromDescription("Venda #")
	assert.True(t, errors.Is(err, apperror.ErrSaleReference))
}
