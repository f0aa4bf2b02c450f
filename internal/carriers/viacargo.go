package carriers

import (
	"context"
	"fmt"
	"strings"
)

// ViaCargoClient tracks shipments on the Via Cargo site. The tracking page
// embeds the real results in a cross-origin iframe served from the carrier's
// forms host, so the client first resolves the iframe URL and then renders
// the frame document directly to run the extraction script against it.
type ViaCargoClient struct {
	fetcher *PageFetcher
	baseURL string
}

// NewViaCargoClient creates a Via Cargo client backed by the shared pool.
func NewViaCargoClient(pool *BrowserPool, options *HeadlessOptions, baseURL string) *ViaCargoClient {
	if baseURL == "" {
		baseURL = "https://viacargo.com.ar"
	}
	return &ViaCargoClient{
		fetcher: NewPageFetcher(ViaCargo, pool, options),
		baseURL: baseURL,
	}
}

func (c *ViaCargoClient) CarrierName() Carrier { return ViaCargo }

// ValidateIdentifier requires a digits-only shipment number.
func (c *ViaCargoClient) ValidateIdentifier(id TrackingID) error {
	if id.Number == "" {
		return NewCarrierError(ViaCargo, CodeValidation, "El número de envío es requerido")
	}
	if !digitsPattern.MatchString(id.Number) {
		return NewCarrierError(ViaCargo, CodeValidation, "El número de envío debe contener solo dígitos")
	}
	return nil
}

// viaCargoPayload is the shape returned by the in-page extraction script.
type viaCargoPayload struct {
	TrackingNumber string `json:"trackingNumber"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	Pieces         string `json:"pieces"`
	Weight         string `json:"weight"`
	SignedBy       string `json:"signedBy"`
	Service        string `json:"service"`
	Timeline       []struct {
		Location string `json:"location"`
		Datetime string `json:"datetime"`
		Status   string `json:"status"`
	} `json:"timeline"`
	Incidents string `json:"incidents"`
}

// viaCargoExtractScript walks the rendered frame document. The first ul is
// the shipment header (label/value item pairs, with origin and destination
// as the two single-paragraph items), the second ul is the event history
// with "datetime • status" paragraphs.
const viaCargoExtractScript = `(() => {
	const text = (el) => (el && el.textContent ? el.textContent.trim() : "");

	const result = {
		trackingNumber: "", origin: "", destination: "", pieces: "",
		weight: "", signedBy: "", service: "", timeline: [], incidents: "",
	};

	const lists = document.querySelectorAll("ul");
	const headerItems = lists[0] ? lists[0].querySelectorAll("li") : [];
	headerItems.forEach((item, index) => {
		const ps = item.querySelectorAll("p");
		if (ps.length >= 2) {
			const label = text(ps[0]);
			const value = text(ps[1]);
			if (label === "Número de envío") result.trackingNumber = value;
			else if (label === "Cantidad de piezas") result.pieces = value;
			else if (label === "Peso") result.weight = value;
			else if (label === "Firmado por") result.signedBy = value;
			else if (label === "Servicio") result.service = value;
		} else if (ps.length === 1) {
			if (index === 1) result.origin = text(ps[0]);
			else if (index === 2) result.destination = text(ps[0]);
		}
	});

	if (lists.length >= 2) {
		lists[1].querySelectorAll("li").forEach((item) => {
			const ps = item.querySelectorAll("p");
			if (ps.length >= 2) {
				const parts = text(ps[1]).split("•");
				result.timeline.push({
					location: text(ps[0]),
					datetime: (parts[0] || "").trim(),
					status: (parts[1] || "").trim(),
				});
			}
		});
	}

	const heading = Array.from(document.querySelectorAll("h2"))
		.find((h) => h.textContent && h.textContent.includes("Incidencias"));
	if (heading && heading.nextElementSibling) {
		result.incidents = text(heading.nextElementSibling);
	}
	return result;
})()`

// Track renders the tracking page, hops into the results iframe and maps
// the extracted payload onto the canonical model.
func (c *ViaCargoClient) Track(ctx context.Context, id TrackingID) (*TrackingInfo, error) {
	pageURL := fmt.Sprintf("%s/seguimiento-de-envio/%s/", c.baseURL, id.Number)

	frameURL, err := c.fetcher.ResolveAttribute(ctx, pageURL, "iframe", "src")
	if err != nil {
		return nil, err
	}
	if frameURL == "" {
		return nil, NewCarrierError(ViaCargo, CodeNavigation,
			"No se pudo localizar el marco de resultados en la página de seguimiento")
	}

	var payload viaCargoPayload
	if err := c.fetcher.EvaluateOnPage(ctx, frameURL, "ul", nil, viaCargoExtractScript, &payload); err != nil {
		return nil, err
	}

	if strings.TrimSpace(payload.TrackingNumber) == "" {
		return nil, NewCarrierError(ViaCargo, CodeNotFound,
			"Número de envío no encontrado. Verificá que el número sea correcto.")
	}
	if payload.Origin == "" && payload.Destination == "" && payload.Service == "" {
		return nil, NewCarrierError(ViaCargo, CodeNotFound,
			"No se encontró información para este número de envío. Verificá que sea correcto.")
	}
	return normalizeViaCargo(payload), nil
}

// normalizeViaCargo keeps the page's native newest-first event order.
func normalizeViaCargo(payload viaCargoPayload) *TrackingInfo {
	info := NewTrackingInfo(ViaCargo, payload.TrackingNumber)

	info.Origin = orNA(payload.Origin)
	info.Destination = orNA(payload.Destination)
	info.Pieces = orNA(payload.Pieces)
	info.Weight = orNA(payload.Weight)
	info.SignedBy = payload.SignedBy
	if payload.Service != "" {
		info.Service = payload.Service
	}

	timeline := make([]TimelineEvent, 0, len(payload.Timeline))
	for _, ev := range payload.Timeline {
		timeline = append(timeline, TimelineEvent(ev))
	}
	info.Timeline = timeline
	if len(timeline) > 0 {
		info.CurrentStatus = timeline[0].Status
	}

	info.Incidents = payload.Incidents
	if info.Incidents == "" {
		info.Incidents = "No hay incidencias."
	}
	return info
}

// Close releases the underlying fetcher resources.
func (c *ViaCargoClient) Close() { c.fetcher.Close() }
