package carriers

import (
	"context"
	"fmt"
	"regexp"
)

// AndreaniClient tracks shipments on the Andreani site, a client-rendered
// React page. The tracking state widget carries a stable data-testid, which
// doubles as the render-complete marker.
type AndreaniClient struct {
	fetcher *PageFetcher
	baseURL string
}

// NewAndreaniClient creates an Andreani client backed by the shared pool.
func NewAndreaniClient(pool *BrowserPool, options *HeadlessOptions, baseURL string) *AndreaniClient {
	if baseURL == "" {
		baseURL = "https://www.andreani.com"
	}
	return &AndreaniClient{
		fetcher: NewPageFetcher(Andreani, pool, options),
		baseURL: baseURL,
	}
}

func (c *AndreaniClient) CarrierName() Carrier { return Andreani }

var andreaniPattern = regexp.MustCompile(`^\d{15}$`)

// ValidateIdentifier requires the fixed 15-digit Andreani number.
func (c *AndreaniClient) ValidateIdentifier(id TrackingID) error {
	if id.Number == "" {
		return NewCarrierError(Andreani, CodeValidation, "El número de envío es requerido")
	}
	if !andreaniPattern.MatchString(id.Number) {
		return NewCarrierError(Andreani, CodeValidation,
			"El número de envío de Andreani debe tener exactamente 15 dígitos")
	}
	return nil
}

type andreaniPayload struct {
	CurrentStatus  string `json:"currentStatus"`
	TrackingNumber string `json:"trackingNumber"`
	DeliveryInfo   string `json:"deliveryInfo"`
	Timeline       []struct {
		Location string `json:"location"`
		Datetime string `json:"datetime"`
		Status   string `json:"status"`
	} `json:"timeline"`
}

// andreaniExtractScript reads the tracking widget. Timeline items group
// sub-events under one title; each date/time/description triple becomes its
// own event with the title prefixed onto the description.
const andreaniExtractScript = `(() => {
	const text = (el) => (el && el.textContent ? el.textContent.trim() : "");

	const state = document.querySelector('[data-testid="tracking-state"]');
	const currentStatus = text(state) || "Desconocido";

	const trackingText = text(document.querySelector('[class*="TrackingState_styles__text"]'));
	const numberMatch = trackingText.match(/N°\s*(\d+)/);
	const trackingNumber = numberMatch ? numberMatch[1] : "";

	const deliveryInfo = text(document.querySelector('[class*="fechaEstimada"]'));

	const timeline = [];
	document.querySelectorAll('[data-testid="vertical-timeline-item"]').forEach((item) => {
		const status = text(item.querySelector('[class*="__title"]'));
		const dates = item.querySelectorAll('[class*="__date"]');
		const times = item.querySelectorAll('[class*="__time"]');
		const descs = item.querySelectorAll('[class*="__description"]');

		dates.forEach((dateEl, index) => {
			const date = text(dateEl);
			if (!status || !date) return;
			const time = text(times[index]);
			const description = text(descs[index]);
			timeline.push({
				location: "",
				datetime: (date + " " + time).trim(),
				status: description ? status + " - " + description : status,
			});
		});
	});

	return { currentStatus, trackingNumber, deliveryInfo, timeline };
})()`

// Track renders the shipment page and maps the widget state onto the
// canonical model.
func (c *AndreaniClient) Track(ctx context.Context, id TrackingID) (*TrackingInfo, error) {
	pageURL := fmt.Sprintf("%s/envio/%s", c.baseURL, id.Number)

	var payload andreaniPayload
	err := c.fetcher.EvaluateOnPage(ctx, pageURL, `[data-testid="tracking-state"]`, nil,
		andreaniExtractScript, &payload)
	if err != nil {
		return nil, err
	}
	if payload.TrackingNumber == "" {
		return nil, NewCarrierError(Andreani, CodeNotFound,
			"No se pudo encontrar información del envío")
	}
	return normalizeAndreani(payload), nil
}

// normalizeAndreani keeps the widget's native newest-first event order. The
// page never exposes origin, destination, pieces or weight, so those stay on
// their sentinels.
func normalizeAndreani(payload andreaniPayload) *TrackingInfo {
	info := NewTrackingInfo(Andreani, payload.TrackingNumber)

	info.CurrentStatus = payload.CurrentStatus
	info.SignedBy = payload.DeliveryInfo
	if info.SignedBy == "" {
		info.SignedBy = payload.CurrentStatus
	}

	timeline := make([]TimelineEvent, 0, len(payload.Timeline))
	for _, ev := range payload.Timeline {
		timeline = append(timeline, TimelineEvent(ev))
	}
	info.Timeline = timeline
	info.Incidents = ""
	return info
}

// Close releases the underlying fetcher resources.
func (c *AndreaniClient) Close() { c.fetcher.Close() }
