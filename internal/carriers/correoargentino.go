package carriers

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// CorreoArgentinoClient queries the national postal carrier's JSON facade.
// The facade is a form-encoded POST endpoint whose "mercadolibre" action
// returns the full event history for a shipment.
type CorreoArgentinoClient struct {
	*ScrapingClient
	baseURL string
}

// NewCorreoArgentinoClient creates a Correo Argentino API client.
func NewCorreoArgentinoClient(userAgent, baseURL string, timeout time.Duration) *CorreoArgentinoClient {
	if baseURL == "" {
		baseURL = "https://www.correoargentino.com.ar/sites/all/modules/custom/ca_forms/api/wsFacade.php"
	}
	return &CorreoArgentinoClient{
		ScrapingClient: NewScrapingClient(CorreoArgentino, userAgent, timeout),
		baseURL:        baseURL,
	}
}

var correoPattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// ValidateIdentifier requires an uppercase alphanumeric code.
func (c *CorreoArgentinoClient) ValidateIdentifier(id TrackingID) error {
	if id.Number == "" {
		return NewCarrierError(CorreoArgentino, CodeValidation,
			"El número de seguimiento es requerido")
	}
	if !correoPattern.MatchString(id.Number) {
		return NewCarrierError(CorreoArgentino, CodeValidation,
			"El número de seguimiento debe contener solo letras mayúsculas y dígitos")
	}
	return nil
}

// correoEvent mirrors one entry of the facade's eventos array. Every field
// can be absent, so all decode as plain strings with empty defaults.
type correoEvent struct {
	Fecha       string `json:"fecha"`
	Hora        string `json:"hora"`
	Estado      string `json:"estado"`
	Subestado   string `json:"subestado"`
	Oficina     string `json:"oficina"`
	Localidad   string `json:"localidad"`
	Provincia   string `json:"provincia"`
	Comentarios string `json:"comentarios"`
}

type correoResponse struct {
	Error     bool   `json:"error"`
	Mensaje   string `json:"mensaje"`
	Resultado *struct {
		Eventos []correoEvent `json:"eventos"`
	} `json:"resultado"`
}

// Track queries the facade and normalizes the event history.
func (c *CorreoArgentinoClient) Track(ctx context.Context, id TrackingID) (*TrackingInfo, error) {
	form := url.Values{}
	form.Set("action", "mercadolibre")
	form.Set("id", id.Number)

	body, err := c.fetch(ctx, "POST", c.baseURL, form)
	if err != nil {
		return nil, err
	}

	var resp correoResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, NewCarrierError(CorreoArgentino, CodeParse,
			"La respuesta del servicio no pudo ser interpretada")
	}
	if resp.Error || resp.Resultado == nil {
		msg := resp.Mensaje
		if msg == "" {
			msg = "No se encontró información para este número de seguimiento. Verificá que sea correcto."
		}
		return nil, NewCarrierError(CorreoArgentino, CodeNotFound, msg)
	}
	if len(resp.Resultado.Eventos) == 0 {
		return nil, NewCarrierError(CorreoArgentino, CodeNotFound,
			"No hay eventos de seguimiento disponibles para este envío.")
	}
	return normalizeCorreo(id.Number, resp.Resultado.Eventos), nil
}

// normalizeCorreo maps the facade's eventos onto the canonical model. The
// facade already delivers events newest-first, so the order is kept.
func normalizeCorreo(trackingNumber string, eventos []correoEvent) *TrackingInfo {
	info := NewTrackingInfo(CorreoArgentino, trackingNumber)

	latest := eventos[0]
	oldest := eventos[len(eventos)-1]

	info.CurrentStatus = latest.Estado
	if info.CurrentStatus == "" {
		info.CurrentStatus = "Desconocido"
	}
	info.Origin = correoLocality(oldest)
	info.Destination = correoLocality(latest)

	timeline := make([]TimelineEvent, 0, len(eventos))
	for _, ev := range eventos {
		timeline = append(timeline, TimelineEvent{
			Location: correoLocation(ev),
			Datetime: correoDatetime(ev),
			Status:   correoStatus(ev),
		})
	}
	info.Timeline = timeline

	signedBy := info.CurrentStatus
	if dt := correoDatetime(latest); dt != "N/A" {
		signedBy += " - " + dt
	}
	if loc := joinNonEmpty(" - ", latest.Oficina, latest.Localidad); loc != "" {
		signedBy += " - " + loc
	}
	info.SignedBy = signedBy

	info.Incidents = latest.Comentarios
	return info
}

// correoLocality derives origin/destination text from one event.
func correoLocality(ev correoEvent) string {
	switch {
	case ev.Localidad != "" && ev.Provincia != "":
		return ev.Localidad + ", " + ev.Provincia
	case ev.Localidad != "":
		return ev.Localidad
	case ev.Provincia != "":
		return ev.Provincia
	default:
		return "N/A"
	}
}

func correoLocation(ev correoEvent) string {
	loc := joinNonEmpty(", ", ev.Oficina, ev.Localidad, ev.Provincia)
	if loc == "" {
		return "N/A"
	}
	return loc
}

func correoDatetime(ev correoEvent) string {
	switch {
	case ev.Fecha != "" && ev.Hora != "":
		return ev.Fecha + " " + ev.Hora
	case ev.Fecha != "":
		return ev.Fecha
	case ev.Hora != "":
		return ev.Hora
	default:
		return "N/A"
	}
}

// correoStatus builds the augmented status string, appending substatus and
// free-text comments when present.
func correoStatus(ev correoEvent) string {
	status := ev.Estado
	if status == "" {
		status = "Sin información"
	}
	if ev.Subestado != "" {
		status += " - " + ev.Subestado
	}
	if ev.Comentarios != "" {
		status += " (" + ev.Comentarios + ")"
	}
	return status
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
