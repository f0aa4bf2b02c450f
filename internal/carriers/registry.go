package carriers

// CarrierInfo is the user-facing metadata for one carrier.
type CarrierInfo struct {
	ID          Carrier           `json:"id"`
	DisplayName string            `json:"displayName"`
	Description string            `json:"description"`
	Composite   bool              `json:"composite"`
	Placeholder map[string]string `json:"placeholder"`
}

var registry = map[Carrier]CarrierInfo{
	ViaCargo: {
		ID:          ViaCargo,
		DisplayName: "Via Cargo",
		Description: "Seguimiento de envíos Via Cargo",
		Placeholder: map[string]string{"trackingNumber": "Ej: 999030148732"},
	},
	BusPack: {
		ID:          BusPack,
		DisplayName: "BusPack",
		Description: "Seguimiento de envíos BusPack",
		Composite:   true,
		Placeholder: map[string]string{
			"letra":  "Ej: R",
			"boca":   "Ej: 3101",
			"numero": "Ej: 10055",
		},
	},
	Andreani: {
		ID:          Andreani,
		DisplayName: "Andreani",
		Description: "Seguimiento de envíos Andreani",
		Placeholder: map[string]string{"trackingNumber": "Ej: 360002701689990"},
	},
	OCA: {
		ID:          OCA,
		DisplayName: "OCA",
		Description: "Seguimiento de envíos OCA",
		Placeholder: map[string]string{"trackingNumber": "Ej: 5079800000002376408"},
	},
	CorreoArgentino: {
		ID:          CorreoArgentino,
		DisplayName: "Correo Argentino",
		Description: "Seguimiento de envíos Correo Argentino",
		Placeholder: map[string]string{"trackingNumber": "Ej: HC261803236AR"},
	},
}

// Info returns the metadata for one carrier.
func Info(carrier Carrier) (CarrierInfo, bool) {
	info, ok := registry[carrier]
	return info, ok
}

// AllInfo returns metadata for every carrier in stable order.
func AllInfo() []CarrierInfo {
	out := make([]CarrierInfo, 0, len(registry))
	for _, c := range AllCarriers() {
		out = append(out, registry[c])
	}
	return out
}
