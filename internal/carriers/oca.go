package carriers

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// OCAClient tracks shipments through the OCA e-Pak XML web service.
//
// The service answers with a DataSet-style document carrying one <Table>
// block per tracking event. The markup is not reliably well formed, so
// fields are pulled out with tag-delimited extraction per block instead of a
// document parser; a field whose tags are absent simply stays empty and the
// normalization step applies fallbacks.
type OCAClient struct {
	*ScrapingClient
	baseURL string
}

// NewOCAClient creates an OCA web-service client.
func NewOCAClient(userAgent, baseURL string, timeout time.Duration) *OCAClient {
	if baseURL == "" {
		baseURL = "http://webservice.oca.com.ar/epak_tracking/Oep_TrackEPak.asmx"
	}
	return &OCAClient{
		ScrapingClient: NewScrapingClient(OCA, userAgent, timeout),
		baseURL:        baseURL,
	}
}

// ValidateIdentifier accepts any non-empty tracking key; OCA issues several
// label formats (e-Pak numbers, remito numbers) with no single shape.
func (c *OCAClient) ValidateIdentifier(id TrackingID) error {
	if strings.TrimSpace(id.Number) == "" {
		return NewCarrierError(OCA, CodeValidation, "El número de seguimiento es requerido")
	}
	return nil
}

// Track fetches and normalizes one OCA shipment.
func (c *OCAClient) Track(ctx context.Context, id TrackingID) (*TrackingInfo, error) {
	query := url.Values{}
	query.Set("Pieza", id.Number)
	query.Set("NroDocumentoCliente", "")
	query.Set("CUIT", "")

	body, err := c.fetch(ctx, "GET", c.baseURL+"/Tracking_Pieza?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	records := parseOCARecords(body)
	if len(records) == 0 {
		return nil, NewCarrierError(OCA, CodeNotFound,
			"No se encontró información para este envío de OCA. Verificá que el número sea correcto.")
	}
	return normalizeOCA(id.Number, records), nil
}

// ocaRecord is the carrier-native intermediate record for one <Table> block.
// Unresolved fields stay empty so the normalizer can apply fallback logic.
type ocaRecord struct {
	Estado   string
	Fecha    string
	Sucursal string
	Motivo   string
}

// parseOCARecords collects one record per <Table> block. A response without
// blocks yields an empty set, never an error.
func parseOCARecords(body string) []ocaRecord {
	blocks := strings.Split(body, "<Table")
	if len(blocks) < 2 {
		return nil
	}

	records := make([]ocaRecord, 0, len(blocks)-1)
	for _, block := range blocks[1:] {
		if end := strings.Index(block, "</Table>"); end >= 0 {
			block = block[:end]
		}
		rec := ocaRecord{
			Estado:   extractBetween(block, "<Estado>", "</Estado>"),
			Fecha:    extractBetween(block, "<Fecha>", "</Fecha>"),
			Sucursal: extractBetween(block, "<Sucursal>", "</Sucursal>"),
			Motivo:   extractBetween(block, "<Motivo>", "</Motivo>"),
		}
		if rec.Estado == "" && rec.Fecha == "" && rec.Sucursal == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// formatOCADate reformats the carrier-local ISO-with-offset stamp into
// "YYYY-MM-DD HH:mm". An unparsable date falls back to the raw string rather
// than failing the record.
func formatOCADate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02 15:04")
		}
	}
	return raw
}

// normalizeOCA maps the native record list onto the canonical model. The
// service reports events newest-first, so the list is used as-is for the
// outward timeline; origin and destination come from the two endpoint blocks.
func normalizeOCA(trackingNumber string, records []ocaRecord) *TrackingInfo {
	info := NewTrackingInfo(OCA, trackingNumber)

	timeline := make([]TimelineEvent, 0, len(records))
	for _, rec := range records {
		status := rec.Estado
		if status == "" {
			status = "Sin información"
		}
		if rec.Motivo != "" {
			status = fmt.Sprintf("%s (%s)", status, rec.Motivo)
		}
		timeline = append(timeline, TimelineEvent{
			Location: orNA(rec.Sucursal),
			Datetime: formatOCADate(rec.Fecha),
			Status:   status,
		})
	}
	info.Timeline = timeline

	latest := records[0]
	oldest := records[len(records)-1]
	info.CurrentStatus = timeline[0].Status
	if oldest.Sucursal != "" {
		info.Origin = oldest.Sucursal
	}
	if latest.Sucursal != "" {
		info.Destination = latest.Sucursal
	}
	info.SignedBy = info.CurrentStatus
	if d := timeline[0].Datetime; d != "" {
		info.SignedBy = fmt.Sprintf("%s - %s", info.CurrentStatus, d)
	}
	return info
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
