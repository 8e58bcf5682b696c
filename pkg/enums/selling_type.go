package enums

// SellingType selects which stock pool a line item draws from.
type SellingType string

const (
	SellingTypeUnit   SellingType = "unit"
	SellingTypePallet SellingType = "pallet"
)

// IsValid reports whether the value is a known selling type.
func (s SellingType) IsValid() bool {
	return s == SellingTypeUnit || s == SellingTypePallet
}
