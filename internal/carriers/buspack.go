package carriers

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// BusPackClient tracks shipments through the BusPack agency system, a legacy
// server-rendered application addressed by the three-segment
// letra/boca/numero key on the query string.
//
// The response is an HTML fragment under a #respuesta container: loose divs
// whose only anchor is their visible label text, plus a history table. There
// are no usable ids or classes below the container, so every field is located
// by label-prefix matching against the full div text.
type BusPackClient struct {
	*ScrapingClient
	baseURL string
}

// NewBusPackClient creates a BusPack client.
func NewBusPackClient(userAgent, baseURL string, timeout time.Duration) *BusPackClient {
	if baseURL == "" {
		baseURL = "https://netsolutions.empresar-sys.com.ar:27576/apps/gspclientes/"
	}
	return &BusPackClient{
		ScrapingClient: NewScrapingClient(BusPack, userAgent, timeout),
		baseURL:        baseURL,
	}
}

var (
	buspackLetraPattern = regexp.MustCompile(`^[a-zA-Z]$`)
	digitsPattern       = regexp.MustCompile(`^\d+$`)
)

// ValidateIdentifier checks the three-segment composite shape.
func (c *BusPackClient) ValidateIdentifier(id TrackingID) error {
	if id.Letra == "" || id.Boca == "" || id.Numero == "" {
		return NewCarrierError(BusPack, CodeValidation,
			"Todos los campos son requeridos: Letra, Boca y Número")
	}
	if !buspackLetraPattern.MatchString(id.Letra) {
		return NewCarrierError(BusPack, CodeValidation, "La letra debe ser un solo carácter")
	}
	if !digitsPattern.MatchString(id.Boca) || !digitsPattern.MatchString(id.Numero) {
		return NewCarrierError(BusPack, CodeValidation, "Boca y número deben contener solo dígitos")
	}
	return nil
}

// Track fetches and normalizes one BusPack shipment.
func (c *BusPackClient) Track(ctx context.Context, id TrackingID) (*TrackingInfo, error) {
	query := url.Values{}
	query.Set("idEmp", "")
	query.Set("Letra", id.Letra)
	query.Set("Boca", id.Boca)
	query.Set("Numero", id.Numero)

	body, err := c.fetch(ctx, "GET", c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	rec := parseBusPackResponse(body)
	if rec == nil || rec.TrackingNumber == "" {
		return nil, NewCarrierError(BusPack, CodeNotFound,
			"Número de comprobante no encontrado. Verificá los parámetros (Letra, Boca y Número).")
	}
	return normalizeBusPack(rec), nil
}

// busPackRecord is the carrier-native intermediate record.
type busPackRecord struct {
	CurrentStatus  string
	DeliveryDate   string
	TrackingNumber string
	Pieces         string
	PieceNumbers   string
	Weight         string
	SignedBy       string
	DocumentType   string
	Destination    string
	History        []TimelineEvent // oldest-first, as rendered
}

// busPackStatusPrefixes are the status headings the fragment renders in bold;
// the first div matching one of them is the shipment's current state.
var busPackStatusPrefixes = []string{"Entregado", "En camino", "En Agencia"}

// parseBusPackResponse extracts the native record from the rendered
// fragment. A response without the #respuesta container yields nil.
func parseBusPackResponse(body string) *busPackRecord {
	start := strings.Index(body, `id="respuesta"`)
	if start < 0 {
		return nil
	}
	section := body[start:]

	rec := &busPackRecord{}
	for _, chunk := range strings.Split(section, "<div") {
		text := cleanHTML(afterTag(chunk))
		if text == "" {
			continue
		}

		if rec.CurrentStatus == "" {
			for _, prefix := range busPackStatusPrefixes {
				if strings.HasPrefix(text, prefix) {
					rec.CurrentStatus = firstLabelStop(text)
					break
				}
			}
		}

		switch {
		case setLabel(&rec.DeliveryDate, text, "Fecha y hora"):
		case setLabel(&rec.TrackingNumber, text, "Nro. de comprobante"):
		case setLabel(&rec.Pieces, text, "Cantidad de piezas"):
		case setLabel(&rec.PieceNumbers, text, "Número/s de Pieza/s"):
		case setLabel(&rec.Weight, text, "Peso Total (en kg.)"):
		case setLabel(&rec.SignedBy, text, "Receptor"):
		case setLabel(&rec.DocumentType, text, "Tipo y número de Documento"):
		default:
			// Destination is the one unlabeled line, rendered as
			// "LOCALIDAD (PROV)".
			if rec.Destination == "" && strings.Contains(text, "(") && strings.HasSuffix(text, ")") {
				rec.Destination = text
			}
		}
	}

	rec.History = parseBusPackHistory(section)
	return rec
}

// setLabel assigns the label's value into dst the first time it matches. The
// fragment nests divs, so the same label text can appear in more than one
// cleaned chunk; only the innermost (first-seen) value wins.
func setLabel(dst *string, text, label string) bool {
	value, ok := labelValue(text, label)
	if !ok {
		return false
	}
	if *dst == "" {
		*dst = firstLabelStop(value)
	}
	return true
}

// firstLabelStop cuts a cleaned chunk at the start of the next labeled field.
// Needed because unclosed divs make one cleaned chunk run into the next.
func firstLabelStop(text string) string {
	cut := len(text)
	for _, label := range []string{
		"Fecha y hora", "Nro. de comprobante", "Cantidad de piezas",
		"Número/s de Pieza/s", "Peso Total", "Receptor", "Tipo y número",
	} {
		if idx := strings.Index(text, label); idx > 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(text[:cut])
}

// parseBusPackHistory reads the history table inside the fragment. Rows are
// split on the literal "<tr" boundary; the first row is the header.
func parseBusPackHistory(section string) []TimelineEvent {
	tableStart := strings.Index(section, "<table")
	if tableStart < 0 {
		return nil
	}
	table := section[tableStart:]
	if end := strings.Index(table, "</table>"); end >= 0 {
		table = table[:end]
	}

	rows := strings.Split(table, "<tr")
	if len(rows) <= 2 {
		return nil
	}

	var events []TimelineEvent
	for _, row := range rows[2:] { // rows[0] is the table tag, rows[1] the header
		cells := strings.Split(row, "<td")
		if len(cells) < 3 {
			continue
		}
		datetime := cleanHTML(afterTag(cells[1]))
		status := cleanHTML(afterTag(cells[2]))
		if datetime == "" || status == "" {
			continue
		}
		events = append(events, TimelineEvent{
			Location: "", // the history table carries no location column
			Datetime: datetime,
			Status:   status,
		})
	}
	return events
}

// normalizeBusPack maps the native record onto the canonical model. The
// history table is rendered oldest-first, so it is reversed for the
// newest-first outward timeline.
func normalizeBusPack(rec *busPackRecord) *TrackingInfo {
	info := NewTrackingInfo(BusPack, rec.TrackingNumber)

	timeline := make([]TimelineEvent, 0, len(rec.History))
	for i := len(rec.History) - 1; i >= 0; i-- {
		timeline = append(timeline, rec.History[i])
	}
	info.Timeline = timeline

	info.Origin = "" // the fragment never states an origin
	info.CurrentStatus = rec.CurrentStatus
	if info.CurrentStatus == "" && len(timeline) > 0 {
		info.CurrentStatus = timeline[0].Status
	}
	if rec.Destination != "" {
		info.Destination = rec.Destination
	}
	if rec.Pieces != "" {
		info.Pieces = rec.Pieces
	}
	if rec.Weight != "" {
		info.Weight = rec.Weight
	} else {
		info.Weight = "No especificado"
	}
	info.SignedBy = rec.SignedBy
	if rec.SignedBy != "" && rec.DocumentType != "" {
		info.SignedBy = rec.SignedBy + " (" + rec.DocumentType + ")"
	}
	info.Incidents = "No hay incidencias."
	return info
}
