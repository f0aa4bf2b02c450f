package carriers

import "testing"

// Validation never touches the browser pool, so these run without Chrome.

func TestViaCargoValidateIdentifier(t *testing.T) {
	client := NewViaCargoClient(nil, DefaultHeadlessOptions(), "")

	tests := []struct {
		name    string
		number  string
		wantErr bool
	}{
		{"valid", "999030148732", false},
		{"empty", "", true},
		{"letters", "ABC123", true},
		{"spaces", "9990 30148732", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.ValidateIdentifier(NewTrackingID(ViaCargo, tt.number))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.number, err, tt.wantErr)
			}
		})
	}
}

func TestAndreaniValidateIdentifier(t *testing.T) {
	client := NewAndreaniClient(nil, DefaultHeadlessOptions(), "")

	tests := []struct {
		name    string
		number  string
		wantErr bool
	}{
		{"valid", "360002701689990", false},
		{"empty", "", true},
		{"too short", "36000270168999", true},
		{"too long", "3600027016899901", true},
		{"letters", "36000270168999A", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.ValidateIdentifier(NewTrackingID(Andreani, tt.number))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.number, err, tt.wantErr)
			}

			if err != nil {
				cerr, ok := err.(*CarrierError)
				if !ok || cerr.Code != CodeValidation {
					t.Errorf("Expected VALIDATION error, got %v", err)
				}
			}
		})
	}
}

func TestNormalizeViaCargo(t *testing.T) {
	payload := viaCargoPayload{
		TrackingNumber: "999030148732",
		Origin:         "ROSARIO",
		Destination:    "",
		Pieces:         "2",
		Service:        "Puerta a Puerta",
	}
	payload.Timeline = append(payload.Timeline, struct {
		Location string `json:"location"`
		Datetime string `json:"datetime"`
		Status   string `json:"status"`
	}{Location: "CABA", Datetime: "14/03/2024 09:10", Status: "Entregado"})

	info := normalizeViaCargo(payload)
	if info.Origin != "ROSARIO" {
		t.Errorf("Origin = %q", info.Origin)
	}
	if info.Destination != "N/A" {
		t.Errorf("Expected N/A for missing destination, got %q", info.Destination)
	}
	if info.Incidents != "No hay incidencias." {
		t.Errorf("Expected default incidents text, got %q", info.Incidents)
	}
	if info.CurrentStatus != "Entregado" {
		t.Errorf("CurrentStatus = %q", info.CurrentStatus)
	}
}

func TestNormalizeAndreani(t *testing.T) {
	payload := andreaniPayload{
		CurrentStatus:  "Entregado",
		TrackingNumber: "360002701689990",
		DeliveryInfo:   "Entregado el 14/03/2024",
	}
	payload.Timeline = append(payload.Timeline, struct {
		Location string `json:"location"`
		Datetime string `json:"datetime"`
		Status   string `json:"status"`
	}{Datetime: "14/03/2024 12:00", Status: "Entregado - En el domicilio del destinatario"})

	info := normalizeAndreani(payload)
	if info.CurrentStatus != "Entregado" {
		t.Errorf("CurrentStatus = %q", info.CurrentStatus)
	}
	if info.SignedBy != "Entregado el 14/03/2024" {
		t.Errorf("Expected deliveryInfo as signedBy, got %q", info.SignedBy)
	}
	if len(info.Timeline) != 1 || info.Timeline[0].Status != "Entregado - En el domicilio del destinatario" {
		t.Errorf("Timeline = %+v", info.Timeline)
	}
}
