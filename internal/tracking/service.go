package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rastreo/internal/carriers"
)

// Service runs the full query pipeline for one identifier: validate, fetch,
// parse, normalize. Every failure mode is folded into the ScraperResult
// envelope; callers never see an error cross this boundary.
type Service struct {
	factory *carriers.ClientFactory
	logger  *slog.Logger

	// Upper bound on one whole pipeline run. Headless carriers get extra
	// headroom on top of this.
	timeout time.Duration
}

// NewService creates a query service on top of a client factory.
func NewService(factory *carriers.ClientFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		factory: factory,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// SetTimeout overrides the per-query deadline.
func (s *Service) SetTimeout(d time.Duration) { s.timeout = d }

// Track resolves one identifier into a result envelope.
func (s *Service) Track(ctx context.Context, id carriers.TrackingID) carriers.ScraperResult {
	id = id.Normalize()

	client, strategy, err := s.factory.CreateClient(id.Carrier)
	if err != nil {
		s.logger.Error("client construction failed", "carrier", id.Carrier, "error", err)
		return carriers.Failure("El servicio de seguimiento no está disponible en este momento.")
	}

	// Validation short-circuits before any network activity.
	if err := client.ValidateIdentifier(id); err != nil {
		return carriers.Failure(userMessage(err))
	}

	deadline := s.timeout
	if strategy == carriers.StrategyHeadless {
		deadline = s.timeout + 30*time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	info, err := s.track(ctx, client, id)
	if err != nil {
		s.logger.Warn("tracking query failed",
			"carrier", id.Carrier, "id", id.Display(), "error", err)
		return carriers.Failure(userMessage(err))
	}
	return carriers.Successful(info)
}

// track runs the client call under a panic guard so that a bug in a parser
// surfaces as an envelope failure, not a crashed request.
func (s *Service) track(ctx context.Context, client carriers.Client, id carriers.TrackingID) (info *carriers.TrackingInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tracking panic recovered", "carrier", id.Carrier, "panic", r)
			info = nil
			err = fmt.Errorf("tracking %s: internal failure: %v", id.Carrier, r)
		}
	}()
	return client.Track(ctx, id)
}

// userMessage translates an error into the Spanish text shown to the user.
// NotFound and Validation messages are crafted per carrier and pass through
// verbatim; transport-level failures get a generic per-code message that
// hints at the likely cause without leaking internals.
func userMessage(err error) string {
	var cerr *carriers.CarrierError
	if !errors.As(err, &cerr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return "La consulta tardó demasiado. Intentá de nuevo en unos minutos."
		}
		return "Ocurrió un error inesperado al procesar la consulta."
	}

	switch cerr.Code {
	case carriers.CodeValidation, carriers.CodeNotFound:
		return cerr.Message
	case carriers.CodeTimeout:
		return "La consulta tardó demasiado. El sitio del transportista puede estar lento; intentá de nuevo en unos minutos."
	case carriers.CodeUnreachable:
		return "No se pudo conectar con el transportista. Verificá tu conexión o intentá más tarde."
	case carriers.CodeUpstream:
		return "El servicio del transportista respondió con un error. Intentá de nuevo más tarde."
	case carriers.CodeNavigation:
		return "No se pudo cargar la página de seguimiento del transportista. Intentá de nuevo más tarde."
	case carriers.CodeParse:
		return "La respuesta del transportista no pudo ser interpretada. El formato puede haber cambiado."
	default:
		return "Ocurrió un error al consultar el envío. Intentá de nuevo más tarde."
	}
}
