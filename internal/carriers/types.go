package carriers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Carrier identifies one of the supported parcel companies.
type Carrier string

const (
	ViaCargo        Carrier = "via-cargo"
	BusPack         Carrier = "buspack"
	Andreani        Carrier = "andreani"
	OCA             Carrier = "oca"
	CorreoArgentino Carrier = "correo-argentino"
)

// AllCarriers lists every supported carrier in display order.
func AllCarriers() []Carrier {
	return []Carrier{ViaCargo, BusPack, Andreani, OCA, CorreoArgentino}
}

// IsValid reports whether c is one of the supported carriers.
func (c Carrier) IsValid() bool {
	switch c {
	case ViaCargo, BusPack, Andreani, OCA, CorreoArgentino:
		return true
	}
	return false
}

// DisplayName returns the human-readable carrier name.
func (c Carrier) DisplayName() string {
	switch c {
	case ViaCargo:
		return "Via Cargo"
	case BusPack:
		return "BusPack"
	case Andreani:
		return "Andreani"
	case OCA:
		return "OCA"
	case CorreoArgentino:
		return "Correo Argentino"
	}
	return string(c)
}

// TrackingID is a carrier-qualified shipment identifier. BusPack uses the
// three-segment letra/boca/numero composite; every other carrier uses Number.
type TrackingID struct {
	Carrier Carrier
	Number  string

	// BusPack composite segments.
	Letra  string
	Boca   string
	Numero string
}

// NewTrackingID builds a single-key identifier.
func NewTrackingID(carrier Carrier, number string) TrackingID {
	return TrackingID{Carrier: carrier, Number: number}
}

// ParseIdentifier rebuilds a TrackingID from its display form. For the
// composite carrier that form is "letra-boca-numero".
func ParseIdentifier(carrier Carrier, identifier string) (TrackingID, bool) {
	if carrier == BusPack {
		parts := strings.Split(identifier, "-")
		if len(parts) != 3 {
			return TrackingID{}, false
		}
		return NewBusPackID(parts[0], parts[1], parts[2]), true
	}
	if strings.TrimSpace(identifier) == "" {
		return TrackingID{}, false
	}
	return NewTrackingID(carrier, identifier), true
}

// NewBusPackID builds the three-segment BusPack identifier.
func NewBusPackID(letra, boca, numero string) TrackingID {
	return TrackingID{Carrier: BusPack, Letra: letra, Boca: boca, Numero: numero}
}

// Normalize trims whitespace and fixes letter case so that equivalent user
// input always produces the same cache and history key.
func (id TrackingID) Normalize() TrackingID {
	id.Number = strings.TrimSpace(id.Number)
	id.Letra = strings.ToLower(strings.TrimSpace(id.Letra))
	id.Boca = strings.TrimSpace(id.Boca)
	id.Numero = strings.TrimSpace(id.Numero)

	switch id.Carrier {
	case CorreoArgentino, OCA:
		id.Number = strings.ToUpper(id.Number)
	}
	return id
}

// Display returns the identifier as shown to the user.
func (id TrackingID) Display() string {
	if id.Carrier == BusPack {
		return id.Letra + "-" + id.Boca + "-" + id.Numero
	}
	return id.Number
}

// Key returns the "<carrier>-<identifier>" natural key used by the cache and
// the history store. Callers should normalize first.
func (id TrackingID) Key() string {
	return fmt.Sprintf("%s-%s", id.Carrier, id.Display())
}

// TimelineEvent is one dated status update in a shipment's history.
type TimelineEvent struct {
	Location string `json:"location"`
	Datetime string `json:"datetime"`
	Status   string `json:"status"`
}

// TrackingInfo is the canonical shipment record every carrier normalizes
// into. Fields the upstream does not provide hold "N/A" or the empty string;
// none are ever omitted, and Timeline is never nil.
type TrackingInfo struct {
	TrackingNumber string          `json:"trackingNumber"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	Pieces         string          `json:"pieces"`
	Weight         string          `json:"weight"`
	SignedBy       string          `json:"signedBy"`
	Service        string          `json:"service"`
	Carrier        string          `json:"carrier"`
	CurrentStatus  string          `json:"currentStatus,omitempty"`
	Timeline       []TimelineEvent `json:"timeline"`
	Incidents      string          `json:"incidents"`
	FetchedAt      string          `json:"fetchedAt,omitempty"`
}

// NewTrackingInfo returns a record with every field at its sentinel value.
func NewTrackingInfo(carrier Carrier, trackingNumber string) *TrackingInfo {
	return &TrackingInfo{
		TrackingNumber: trackingNumber,
		Origin:         "N/A",
		Destination:    "N/A",
		Pieces:         "N/A",
		Weight:         "N/A",
		SignedBy:       "",
		Service:        carrier.DisplayName(),
		Carrier:        carrier.DisplayName(),
		Timeline:       []TimelineEvent{},
		Incidents:      "",
		FetchedAt:      time.Now().Format(time.RFC3339),
	}
}

// ScraperResult is the uniform envelope returned across the carrier boundary.
// A failed result never carries Data; no error or panic crosses this shape.
type ScraperResult struct {
	Success bool          `json:"success"`
	Data    *TrackingInfo `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Failure builds a failed envelope.
func Failure(message string) ScraperResult {
	return ScraperResult{Success: false, Error: message}
}

// Successful builds a successful envelope.
func Successful(info *TrackingInfo) ScraperResult {
	return ScraperResult{Success: true, Data: info}
}

// ErrorCode classifies carrier failures.
type ErrorCode string

const (
	CodeValidation  ErrorCode = "VALIDATION"
	CodeTimeout     ErrorCode = "TIMEOUT"
	CodeUnreachable ErrorCode = "UNREACHABLE"
	CodeUpstream    ErrorCode = "UPSTREAM_HTTP"
	CodeNavigation  ErrorCode = "NAVIGATION"
	CodeParse       ErrorCode = "PARSE"
	CodeNotFound    ErrorCode = "NOT_FOUND"
)

// CarrierError is the typed error produced inside the carrier boundary. The
// query service translates it into the ScraperResult envelope; it never
// reaches callers of the engine directly.
type CarrierError struct {
	Carrier   Carrier
	Code      ErrorCode
	Message   string
	Status    int // upstream HTTP status for CodeUpstream
	Retryable bool
}

func (e *CarrierError) Error() string {
	return string(e.Carrier) + ": " + e.Message
}

// NewCarrierError builds a typed carrier error.
func NewCarrierError(carrier Carrier, code ErrorCode, message string) *CarrierError {
	return &CarrierError{Carrier: carrier, Code: code, Message: message}
}

// Client is the capability every carrier variant implements: validate the
// identifier shape, then fetch, parse and normalize one shipment.
type Client interface {
	// Track retrieves and normalizes tracking information for one shipment.
	Track(ctx context.Context, id TrackingID) (*TrackingInfo, error)

	// ValidateIdentifier checks the identifier shape without touching the
	// network. A non-nil return is always a *CarrierError with CodeValidation.
	ValidateIdentifier(id TrackingID) error

	// CarrierName returns the carrier this client handles.
	CarrierName() Carrier
}
