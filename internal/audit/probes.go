// File: internal/audit/probes.go
// Description: The eight subsystem probes. Each issues direct calls against
// its surface and applies fixed assertions; transport failures and assertion
// mismatches both become issues, never Go errors.
package audit

import (
	"context"
	"fmt"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// wellFormedCart is the canonical valid checkout payload the checkout and
// shipping probes post. A healthy endpoint answers it with 2xx, or with 4xx
// when stock or pricing rejects it; 5xx always means a crash.
func wellFormedCart() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"id": "auditoria-item", "nombre": "Remera auditoría", "precio": 100, "cantidad": 1},
		},
		"comprador": map[string]any{
			"nombre": "Auditoría Sintética",
			"email":  "auditoria@catalogo.local",
		},
		"envio": map[string]any{
			"metodo":    "estandar",
			"direccion": "Av. Siempre Viva 742",
			"ciudad":    "Buenos Aires",
			"cp":        "1000",
		},
	}
}

func issue(code string, severity schemas.Severity, impact schemas.Impact, description, solution string) schemas.AuditIssue {
	return schemas.AuditIssue{
		Code:        code,
		Severity:    severity,
		Impact:      impact,
		Description: description,
		Solution:    solution,
	}
}

// probeHome verifies the two entry points every visitor depends on: the root
// page and the product listing.
func (a *Auditor) probeHome(ctx context.Context) []schemas.AuditIssue {
	var issues []schemas.AuditIssue

	resp, err := a.client.Home(ctx)
	switch {
	case err != nil:
		issues = append(issues, issue("HOME_UNREACHABLE", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("la página principal no responde: %v", err),
			"Verificar que el servidor del storefront esté corriendo y accesible"))
	case !resp.OK():
		issues = append(issues, issue("HOME_STATUS", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("la página principal devolvió estado %d", resp.Status),
			"Revisar los logs del servidor para el error de la página principal"))
	}

	listing, err := a.client.Products(ctx, nil)
	switch {
	case err != nil:
		issues = append(issues, issue("PRODUCTS_API_DOWN", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el listado de productos no responde: %v", err),
			"Verificar la API de productos y su conexión a la base de datos"))
	case !listing.OK():
		issues = append(issues, issue("PRODUCTS_API_STATUS", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el listado de productos devolvió estado %d", listing.Status),
			"Revisar la API de productos"))
	default:
		var products []map[string]any
		if err := listing.JSON(&products); err != nil {
			issues = append(issues, issue("PRODUCTS_NOT_ARRAY", schemas.SeverityCritical, schemas.ImpactLethal,
				"el listado de productos no devuelve un array",
				"La respuesta del listado debe ser un array JSON de productos"))
		}
	}
	return issues
}

// probeProduct follows the listing into one product's detail.
func (a *Auditor) probeProduct(ctx context.Context) []schemas.AuditIssue {
	listing, err := a.client.Products(ctx, nil)
	if err != nil || !listing.OK() {
		// The home probe already reports the listing itself.
		return nil
	}
	var products []map[string]any
	if listing.JSON(&products) != nil || len(products) == 0 {
		return []schemas.AuditIssue{issue("CATALOG_EMPTY", schemas.SeverityWarning, schemas.ImpactMedium,
			"el catálogo no tiene productos para auditar",
			"Cargar al menos un producto para habilitar la auditoría de detalle")}
	}
	id, _ := products[0]["id"].(string)
	if id == "" {
		return []schemas.AuditIssue{issue("PRODUCT_MISSING_ID", schemas.SeverityError, schemas.ImpactHigh,
			"los productos del listado no exponen un campo id",
			"Incluir el id en la respuesta del listado")}
	}

	detail, err := a.client.Product(ctx, id)
	switch {
	case err != nil:
		return []schemas.AuditIssue{issue("PRODUCT_DETAIL_DOWN", schemas.SeverityError, schemas.ImpactHigh,
			fmt.Sprintf("el detalle del producto %s no responde: %v", id, err),
			"Verificar el endpoint de detalle de producto")}
	case !detail.OK():
		return []schemas.AuditIssue{issue("PRODUCT_DETAIL_STATUS", schemas.SeverityError, schemas.ImpactHigh,
			fmt.Sprintf("el detalle del producto %s devolvió estado %d", id, detail.Status),
			"Revisar el endpoint de detalle de producto")}
	}
	return nil
}

// probeCart checks that listed products carry the fields the client-side
// cart needs to function.
func (a *Auditor) probeCart(ctx context.Context) []schemas.AuditIssue {
	listing, err := a.client.Products(ctx, nil)
	if err != nil || !listing.OK() {
		return nil
	}
	var products []map[string]any
	if listing.JSON(&products) != nil || len(products) == 0 {
		return nil
	}

	var issues []schemas.AuditIssue
	for _, field := range []string{"id", "precio", "stock"} {
		if _, ok := products[0][field]; !ok {
			issues = append(issues, issue("CART_DATA_INCOMPLETE", schemas.SeverityError, schemas.ImpactHigh,
				fmt.Sprintf("los productos no exponen el campo %q que el carrito necesita", field),
				"Incluir id, precio y stock en el listado de productos"))
		}
	}
	return issues
}

// probeCheckout exercises the conversion path: the checkout page must load
// for non-auth reasons and the order-creation endpoint must never crash on a
// well-formed cart. A 4xx validation answer passes.
func (a *Auditor) probeCheckout(ctx context.Context) []schemas.AuditIssue {
	var issues []schemas.AuditIssue

	page, err := a.client.Get(ctx, "/checkout")
	switch {
	case err != nil:
		issues = append(issues, issue("CHECKOUT_PAGE_DOWN", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("la página de checkout no responde: %v", err),
			"Verificar la ruta /checkout"))
	case page.Status != 401 && page.Status != 403 && !page.OK():
		issues = append(issues, issue("CHECKOUT_PAGE_ERROR", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("la página de checkout devolvió estado %d", page.Status),
			"Revisar la página de checkout; solo los rechazos de autenticación son aceptables"))
	}

	order, err := a.client.Checkout(ctx, wellFormedCart())
	switch {
	case err != nil:
		issues = append(issues, issue("CHECKOUT_API_DOWN", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el endpoint de checkout no responde: %v", err),
			"Verificar el endpoint de creación de órdenes"))
	case order.ServerError():
		issues = append(issues, issue("CHECKOUT_API_500", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el checkout devolvió estado %d para un carrito válido", order.Status),
			"Revisar el endpoint de checkout: un carrito válido nunca debe producir un error 5xx"))
	}
	return issues
}

// probePayment checks the gateway diagnostic and the webhook.
func (a *Auditor) probePayment(ctx context.Context) []schemas.AuditIssue {
	var issues []schemas.AuditIssue

	cfg, err := a.client.PaymentConfig(ctx)
	switch {
	case err != nil:
		issues = append(issues, issue("PAYMENT_CONFIG_DOWN", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el diagnóstico de la pasarela de pago no responde: %v", err),
			"Verificar el endpoint de configuración de pagos"))
	case !cfg.OK():
		issues = append(issues, issue("PAYMENT_CONFIG_STATUS", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el diagnóstico de la pasarela devolvió estado %d", cfg.Status),
			"Revisar la configuración de Mercado Pago"))
	default:
		var diag struct {
			Configured bool `json:"configured"`
		}
		if cfg.JSON(&diag) == nil && !diag.Configured {
			issues = append(issues, issue("PAYMENT_GATEWAY_MISCONFIGURED", schemas.SeverityCritical, schemas.ImpactLethal,
				"la pasarela de pago reporta configuración incompleta",
				"Cargar las credenciales de Mercado Pago en la configuración del servidor"))
		}
	}

	webhook, err := a.client.PaymentWebhook(ctx, map[string]any{"type": "payment", "data": map[string]any{"id": "audit"}})
	switch {
	case err != nil:
		issues = append(issues, issue("PAYMENT_WEBHOOK_DOWN", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el webhook de pagos no responde: %v", err),
			"Verificar el endpoint del webhook de pagos"))
	case webhook.ServerError():
		issues = append(issues, issue("PAYMENT_WEBHOOK_500", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el webhook de pagos devolvió estado %d", webhook.Status),
			"Revisar el manejador del webhook; las notificaciones de pago se están perdiendo"))
	}
	return issues
}

// probePostPayment checks the pages a buyer lands on after the gateway
// redirects back.
func (a *Auditor) probePostPayment(ctx context.Context) []schemas.AuditIssue {
	var issues []schemas.AuditIssue
	for _, page := range []string{"/checkout/success", "/checkout/failure", "/checkout/pending"} {
		resp, err := a.client.Get(ctx, page)
		if err != nil || resp.ServerError() || resp.Status == 404 {
			issues = append(issues, issue("POSTPAYMENT_PAGE_MISSING", schemas.SeverityError, schemas.ImpactHigh,
				fmt.Sprintf("la página post-pago %s no está disponible", page),
				"Restaurar las páginas de retorno del pago; el comprador queda sin confirmación"))
		}
	}
	return issues
}

// probeShipping checks that the checkout validates shipping data instead of
// crashing on it: a cart without shipping must come back 4xx.
func (a *Auditor) probeShipping(ctx context.Context) []schemas.AuditIssue {
	cart := wellFormedCart()
	delete(cart, "envio")

	resp, err := a.client.Checkout(ctx, cart)
	switch {
	case err != nil:
		return []schemas.AuditIssue{issue("SHIPPING_VALIDATION_DOWN", schemas.SeverityError, schemas.ImpactHigh,
			fmt.Sprintf("no se pudo probar la validación de envío: %v", err),
			"Verificar el endpoint de checkout")}
	case resp.ServerError():
		return []schemas.AuditIssue{issue("SHIPPING_VALIDATION_500", schemas.SeverityCritical, schemas.ImpactLethal,
			fmt.Sprintf("el checkout crashea con estado %d ante un carrito sin datos de envío", resp.Status),
			"La falta de datos de envío debe rechazarse con 4xx, nunca con 5xx")}
	case resp.OK():
		return []schemas.AuditIssue{issue("SHIPPING_VALIDATION_MISSING", schemas.SeverityError, schemas.ImpactHigh,
			"el checkout aceptó una orden sin datos de envío",
			"Agregar validación de envío en el endpoint de checkout")}
	}
	return nil
}

// probeAdmin verifies the back-office entry point.
func (a *Auditor) probeAdmin(ctx context.Context) []schemas.AuditIssue {
	resp, err := a.client.Login(ctx, a.adminUser, a.adminSecret)
	switch {
	case err != nil:
		return []schemas.AuditIssue{issue("ADMIN_LOGIN_DOWN", schemas.SeverityError, schemas.ImpactHigh,
			fmt.Sprintf("el login de administración no responde: %v", err),
			"Verificar el endpoint de login")}
	case resp.ServerError():
		return []schemas.AuditIssue{issue("ADMIN_LOGIN_500", schemas.SeverityCritical, schemas.ImpactHigh,
			fmt.Sprintf("el login de administración devolvió estado %d", resp.Status),
			"Revisar el endpoint de login; el back-office quedó inaccesible")}
	case !resp.OK():
		return []schemas.AuditIssue{issue("ADMIN_LOGIN_REJECTED", schemas.SeverityError, schemas.ImpactHigh,
			fmt.Sprintf("el login de administración rechazó las credenciales del monitor con estado %d", resp.Status),
			"Actualizar las credenciales del monitor o revisar el servicio de autenticación")}
	}
	return nil
}
