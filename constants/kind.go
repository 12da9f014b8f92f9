package constants

// PersonKind is the role a person plays for the portfolio.
type PersonKind string

const (
	KindTenant   PersonKind = "TENANT"
	KindOwner    PersonKind = "OWNER"
	KindBroker   PersonKind = "BROKER"
	KindSupplier PersonKind = "SUPPLIER"
)

var allKinds = []PersonKind{
	KindTenant,
	KindOwner,
	KindBroker,
	KindSupplier,
}

func KindsAsStringSlice() []string {
	result := make([]string, len(allKinds))
	for i, k := range allKinds {
		result[i] = string(k)
	}
	return result
}

// PlaceholderName is the display name given to a person created without one.
func (k PersonKind) PlaceholderName() string {
	switch k {
	case KindTenant:
		return "Arrendatario sin nombre"
	case KindOwner:
		return "Propietario sin nombre"
	case KindBroker:
		return "Corredor sin nombre"
	case KindSupplier:
		return "Proveedor sin nombre"
	default:
		return "Persona sin nombre"
	}
}
