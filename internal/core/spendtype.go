package core

// SpendType is one of the three top-level budget buckets a transaction is
// classified under. It is distinct from the free-form display category
// (e.g. "Comida").
type SpendType string

const (
	Necesidades SpendType = "Necesidades"
	Deseos      SpendType = "Deseos"
	Inversion   SpendType = "Inversión"

	// LegacySavings is the retired name of the Inversión bucket. It still
	// appears in old stored transactions and budget percentages and must be
	// treated as an alias everywhere spend types are aggregated or compared.
	LegacySavings SpendType = "Ahorro/Deudas"
)

// SpendTypes returns the canonical buckets in display order.
func SpendTypes() []SpendType {
	return []SpendType{Necesidades, Deseos, Inversion}
}

// Normalize maps the legacy alias to its current name and leaves every
// other value untouched.
func (t SpendType) Normalize() SpendType {
	if t == LegacySavings {
		return Inversion
	}
	return t
}

// Valid reports whether t is one of the canonical buckets after alias
// normalization.
func (t SpendType) Valid() bool {
	switch t.Normalize() {
	case Necesidades, Deseos, Inversion:
		return true
	}
	return false
}
