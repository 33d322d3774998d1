package model

import (
	"strings"

	"github.com/pkg/errors"

	"pix-service/internal/apperror"
)

const referencePrefix = "SALE_"

// SaleReference encodes id into the provider's external_reference field.
func SaleReference(id SaleID) string {
	return referencePrefix + id.String()
}

// SaleIDFromReference reverses SaleReference.
func SaleIDFromReference(reference string) (SaleID, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(reference), referencePrefix)
	if !ok {
		return SaleID{}, errors.Wrapf(apperror.ErrSaleReference, "external reference %q lacks %s prefix", reference, referencePrefix)
	}

	id := NewSaleID(raw)
	if err := id.Validate(); err != nil {
		return SaleID{}, errors.Wrapf(apperror.ErrSaleReference, "external reference %q: %v", reference, err)
	}
	return id, nil
}

// SaleIDFromDescription extracts the id following the last '#' in a free-text
// description such as "Pagamento venda #42". Only used for payments created
// before external_reference was populated.
func SaleIDFromDescription(description string) (SaleID, error) {
	i := strings.LastIndex(description, "#")
	if i < 0 {
		return SaleID{}, errors.Wrapf(apperror.ErrSaleReference, "description %q has no sale marker", description)
	}

	raw := description[i+1:]
	if end := strings.IndexFunc(raw, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }); end >= 0 {
		raw = raw[:end]
	}

	id := NewSaleID(raw)
	if err := id.Validate(); err != nil {
		return SaleID{}, errors.Wrapf(apperror.ErrSaleReference, "description %q: %v", description, err)
	}
	return id, nil
}

// DefaultDescription is the charge description used when the client sends none.
func DefaultDescription(id SaleID) string {
	return "Pagamento venda #" + id.String()
}
