package carriers

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// CorreoArgentinoScrapingClient is the fallback path for the national postal
// carrier: the legacy form handler that predates the JSON facade. It returns
// a server-rendered history table whose row tags are frequently unclosed, so
// rows are recovered by splitting on the literal "<tr" boundary instead of
// parsing a document tree.
type CorreoArgentinoScrapingClient struct {
	*ScrapingClient
	baseURL string
}

// NewCorreoArgentinoScrapingClient creates the legacy HTML client.
func NewCorreoArgentinoScrapingClient(userAgent, baseURL string, timeout time.Duration) *CorreoArgentinoScrapingClient {
	if baseURL == "" {
		baseURL = "https://www.correoargentino.com.ar/sites/all/modules/custom/ca_forms/api/wsFacade.php"
	}
	return &CorreoArgentinoScrapingClient{
		ScrapingClient: NewScrapingClient(CorreoArgentino, userAgent, timeout),
		baseURL:        baseURL,
	}
}

// ValidateIdentifier requires an uppercase alphanumeric code.
func (c *CorreoArgentinoScrapingClient) ValidateIdentifier(id TrackingID) error {
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

// correoLegacyRecord is one recovered history row.
type correoLegacyRecord struct {
	Fecha    string
	Sucursal string
	Estado   string
	Motivo   string
}

// Track runs the legacy form POST and normalizes the recovered rows.
func (c *CorreoArgentinoScrapingClient) Track(ctx context.Context, id TrackingID) (*TrackingInfo, error) {
	form := url.Values{}
	form.Set("action", "oidn")
	form.Set("id", id.Number)

	body, err := c.fetch(ctx, "POST", c.baseURL, form)
	if err != nil {
		return nil, err
	}

	records := parseCorreoLegacyRows(body)
	if len(records) == 0 {
		return nil, NewCarrierError(CorreoArgentino, CodeNotFound,
			"No se encontró información para este número de seguimiento. Verificá que sea correcto.")
	}
	return normalizeCorreoLegacy(id.Number, records), nil
}

// parseCorreoLegacyRows recovers history rows from the legacy table. A body
// without the tbody marker yields an empty set. Cells are matched by their
// label prefix because the markup carries no usable attributes.
func parseCorreoLegacyRows(body string) []correoLegacyRecord {
	start := strings.Index(body, "<tbody")
	if start < 0 {
		return nil
	}
	section := body[start:]
	if end := strings.Index(section, "</tbody>"); end >= 0 {
		section = section[:end]
	}

	var records []correoLegacyRecord
	for _, row := range strings.Split(section, "<tr")[1:] {
		rec := correoLegacyRecord{}
		matched := false
		for _, cell := range strings.Split(row, "<td")[1:] {
			text := cleanHTML(afterTag(cell))
			if v, ok := labelValue(text, "Fecha"); ok {
				rec.Fecha = v
				matched = true
			} else if v, ok := labelValue(text, "Sucursal"); ok {
				rec.Sucursal = v
				matched = true
			} else if v, ok := labelValue(text, "Estado"); ok {
				rec.Estado = v
				matched = true
			} else if v, ok := labelValue(text, "Motivo"); ok {
				rec.Motivo = v
				matched = true
			}
		}
		if matched {
			records = append(records, rec)
		}
	}
	return records
}

// normalizeCorreoLegacy maps recovered rows onto the canonical model. The
// legacy table renders oldest-first, so rows are reversed on the way out.
func normalizeCorreoLegacy(trackingNumber string, records []correoLegacyRecord) *TrackingInfo {
	info := NewTrackingInfo(CorreoArgentino, trackingNumber)

	timeline := make([]TimelineEvent, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		status := rec.Estado
		if status == "" {
			status = "Sin información"
		}
		if rec.Motivo != "" {
			status += " (" + rec.Motivo + ")"
		}
		timeline = append(timeline, TimelineEvent{
			Location: orNA(rec.Sucursal),
			Datetime: orNA(rec.Fecha),
			Status:   status,
		})
	}
	info.Timeline = timeline

	info.CurrentStatus = timeline[0].Status
	info.Origin = orNA(records[0].Sucursal)
	info.Destination = orNA(records[len(records)-1].Sucursal)
	info.SignedBy = timeline[0].Status + " - " + timeline[0].Datetime
	info.Incidents = records[len(records)-1].Motivo
	return info
}
