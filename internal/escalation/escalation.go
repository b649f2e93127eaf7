// File: internal/escalation/escalation.go
// Description: Operator-facing escalation channel. Maps domain failure
// shapes (shipping, checkout, payment, stock, variants, images, external
// integrations) onto a fixed (module, impact, canned solution) catalog and
// forwards them to the alert store with severity derived from impact.
package escalation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/guardian"
)

// catalogEntry fixes the category and canned solution for one module.
type catalogEntry struct {
	category schemas.Category
	solution string
}

// catalog is the fixed per-module solution catalog. Solutions are written in
// the storefront's locale since they surface directly to its operators.
var catalog = map[string]catalogEntry{
	"envios": {
		category: schemas.CategoryCheckout,
		solution: "Verificar la configuración de zonas de envío y los costos por provincia.",
	},
	"checkout": {
		category: schemas.CategoryCheckout,
		solution: "Revisar el endpoint /api/checkout y la validación del carrito.",
	},
	"pasarela_pago": {
		category: schemas.CategoryPaymentGateway,
		solution: "Verificar las credenciales de Mercado Pago y el estado del webhook.",
	},
	"stock": {
		category: schemas.CategoryStock,
		solution: "Sincronizar el stock por variante desde el panel de administración.",
	},
	"variantes": {
		category: schemas.CategoryVariants,
		solution: "Revisar que cada producto tenga talles y colores con stock asignado.",
	},
	"imagenes": {
		category: schemas.CategoryImages,
		solution: "Verificar la subida de imágenes y los límites de tamaño del bucket.",
	},
	"integracion_externa": {
		category: schemas.CategoryAPI,
		solution: "Revisar la disponibilidad del servicio externo y sus credenciales.",
	},
}

// fallbackEntry covers modules outside the fixed catalog.
var fallbackEntry = catalogEntry{
	category: schemas.CategoryAPI,
	solution: "Revisar los logs del servidor para más detalle.",
}

// SevereAlerts is a thin escalation layer over the Guardian. It keeps its
// own triage list with a pending/in_progress/resolved lifecycle that is
// independent of the alert store's resolved flag.
type SevereAlerts struct {
	logger   *zap.Logger
	guardian *guardian.Guardian

	mu      sync.Mutex
	entries []schemas.TriageEntry
}

// New creates the escalation channel on top of an existing Guardian.
func New(logger *zap.Logger, g *guardian.Guardian) *SevereAlerts {
	return &SevereAlerts{
		logger:   logger.Named("severe-alerts"),
		guardian: g,
	}
}

// Report raises one alert for a domain failure in the named module. Severity
// is derived from impact (lethal maps to critical, high to error, the rest
// to warning) and the module's canned solution is attached.
func (s *SevereAlerts) Report(module string, impact schemas.Impact, message string, details map[string]any) {
	entry, ok := catalog[module]
	if !ok {
		entry = fallbackEntry
	}
	severity := schemas.SeverityForImpact(impact)

	s.logger.Warn("Domain failure reported",
		zap.String("module", module),
		zap.String("impact", string(impact)),
		zap.String("message", message))

	s.guardian.DetectError(severity, entry.category, message, &guardian.DetectOptions{
		Details:  details,
		Solution: entry.solution,
	})

	now := time.Now()
	s.mu.Lock()
	s.entries = append(s.entries, schemas.TriageEntry{
		ID:        uuid.New().String(),
		Module:    module,
		Impact:    impact,
		Message:   message,
		Solution:  entry.solution,
		Status:    schemas.TriagePending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	s.mu.Unlock()
}

// -- Domain-specific helpers, one per failure shape the storefront raises. --

// ShippingFailure reports a shipping quote or zone misconfiguration.
func (s *SevereAlerts) ShippingFailure(message string, details map[string]any) {
	s.Report("envios", schemas.ImpactHigh, message, details)
}

// CheckoutFailure reports a blocked purchase path. Always lethal.
func (s *SevereAlerts) CheckoutFailure(message string, details map[string]any) {
	s.Report("checkout", schemas.ImpactLethal, message, details)
}

// PaymentGatewayFailure reports a gateway preference/webhook failure. Always lethal.
func (s *SevereAlerts) PaymentGatewayFailure(message string, details map[string]any) {
	s.Report("pasarela_pago", schemas.ImpactLethal, message, details)
}

// StockFailure reports stock desynchronization.
func (s *SevereAlerts) StockFailure(message string, details map[string]any) {
	s.Report("stock", schemas.ImpactHigh, message, details)
}

// VariantFailure reports a structural problem with product variants.
func (s *SevereAlerts) VariantFailure(message string, details map[string]any) {
	s.Report("variantes", schemas.ImpactMedium, message, details)
}

// ImageUploadFailure reports a failed or inaccessible product image.
func (s *SevereAlerts) ImageUploadFailure(message string, details map[string]any) {
	s.Report("imagenes", schemas.ImpactMedium, message, details)
}

// ExternalIntegrationFailure reports an unreachable upstream dependency.
func (s *SevereAlerts) ExternalIntegrationFailure(message string, details map[string]any) {
	s.Report("integracion_externa", schemas.ImpactHigh, message, details)
}

// Pending returns the triage entries still awaiting an operator.
func (s *SevereAlerts) Pending() []schemas.TriageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []schemas.TriageEntry
	for _, e := range s.entries {
		if e.Status == schemas.TriagePending {
			pending = append(pending, e)
		}
	}
	return pending
}

// All returns a snapshot of every triage entry, oldest first.
func (s *SevereAlerts) All() []schemas.TriageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schemas.TriageEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// MarkInProgress moves a pending entry into in_progress.
func (s *SevereAlerts) MarkInProgress(id string) bool {
	return s.transition(id, schemas.TriagePending, schemas.TriageInProgress)
}

// ResolveTriage closes an entry from either open state.
func (s *SevereAlerts) ResolveTriage(id string) bool {
	if s.transition(id, schemas.TriagePending, schemas.TriageResolved) {
		return true
	}
	return s.transition(id, schemas.TriageInProgress, schemas.TriageResolved)
}

func (s *SevereAlerts) transition(id string, from, to schemas.TriageStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id && s.entries[i].Status == from {
			s.entries[i].Status = to
			s.entries[i].UpdatedAt = time.Now()
			return true
		}
	}
	return false
}
