// File: internal/simulation/virtualuser.go
// Description: Scripted virtual users exercising the storefront end to end.
// Every step runs inside a uniform boundary that times it, recovers panics,
// and always produces a Step result.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/apiclient"
)

// Purchase flow step names. These feed the daily report's user-flow
// checkpoints, so they are stable identifiers.
const (
	StepLoadHome      = "Cargar página principal"
	StepListProducts  = "Listar productos"
	StepProductDetail = "Ver detalle de producto"
	StepAddToCart     = "Agregar al carrito"
	StepGoToCheckout  = "Ir a checkout"
)

// Admin flow step names.
const (
	StepAdminLogin         = "Login de administrador"
	StepAdminListProducts  = "Listar productos como admin"
	StepAdminCreateProduct = "Crear producto de prueba"
)

// VirtualUser is one ephemeral synthetic actor.
type VirtualUser struct {
	ID     string
	logger *zap.Logger
	client *apiclient.Client

	adminUser   string
	adminSecret string
}

// NewVirtualUser creates an actor with a fresh identity.
func NewVirtualUser(logger *zap.Logger, client *apiclient.Client, adminUser, adminSecret string) *VirtualUser {
	id := uuid.NewString()
	return &VirtualUser{
		ID:          id,
		logger:      logger.Named("actor").With(zap.String("actor_id", id)),
		client:      client,
		adminUser:   adminUser,
		adminSecret: adminSecret,
	}
}

// runStep executes one action inside the uniform boundary. Actions never
// throw past this function: panics and errors both become a failed Step.
func (u *VirtualUser) runStep(name string, action func() (map[string]any, error)) (step schemas.Step) {
	start := time.Now()
	step = schemas.Step{Name: name}

	defer func() {
		step.DurationMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			step.Success = false
			step.Error = fmt.Sprintf("panic: %v", r)
			u.logger.Error("Step panicked", zap.String("step", name), zap.Any("panic", r))
		}
	}()

	data, err := action()
	step.Data = data
	if err != nil {
		step.Error = err.Error()
		u.logger.Warn("Step failed", zap.String("step", name), zap.Error(err))
		return step
	}
	step.Success = true
	return step
}

// RunPurchaseFlow executes the five-step purchase journey. The checkout step
// deliberately sends an empty cart: the endpoint must reject it with a 4xx,
// never crash with a 5xx.
func (u *VirtualUser) RunPurchaseFlow(ctx context.Context) schemas.ActorRun {
	run := schemas.ActorRun{ActorID: u.ID, Flow: schemas.FlowPurchase, StartedAt: time.Now()}

	var productID string

	run.Steps = append(run.Steps, u.runStep(StepLoadHome, func() (map[string]any, error) {
		resp, err := u.client.Home(ctx)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("home page returned status %d", resp.Status)
		}
		return map[string]any{"status": resp.Status}, nil
	}))

	run.Steps = append(run.Steps, u.runStep(StepListProducts, func() (map[string]any, error) {
		resp, err := u.client.Products(ctx, nil)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("product listing returned status %d", resp.Status)
		}
		var products []map[string]any
		if err := resp.JSON(&products); err != nil {
			return nil, fmt.Errorf("product listing is not an array: %w", err)
		}
		if len(products) > 0 {
			if id, ok := products[0]["id"].(string); ok {
				productID = id
			}
		}
		return map[string]any{"count": len(products)}, nil
	}))

	run.Steps = append(run.Steps, u.runStep(StepProductDetail, func() (map[string]any, error) {
		if productID == "" {
			// An empty catalog is a storefront state, not an actor failure.
			return map[string]any{"skipped": "empty catalog"}, nil
		}
		resp, err := u.client.Product(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("product detail returned status %d", resp.Status)
		}
		return map[string]any{"product_id": productID}, nil
	}))

	run.Steps = append(run.Steps, u.runStep(StepAddToCart, func() (map[string]any, error) {
		// The cart lives client-side; the actor records the intent so the
		// checkout step has a realistic preceding action.
		return map[string]any{"product_id": productID, "quantity": 1}, nil
	}))

	run.Steps = append(run.Steps, u.runStep(StepGoToCheckout, func() (map[string]any, error) {
		resp, err := u.client.Checkout(ctx, map[string]any{"items": []any{}})
		if err != nil {
			return nil, err
		}
		if resp.ServerError() {
			return nil, fmt.Errorf("checkout crashed on an empty cart with status %d", resp.Status)
		}
		return map[string]any{"status": resp.Status}, nil
	}))

	run.Duration = time.Since(run.StartedAt)
	run.Status = schemas.RunCompleted
	if run.Failed() {
		run.Status = schemas.RunFailed
	}
	return run
}

// RunAdminFlow executes the three-step back-office journey. The login step
// sanity-parses the issued token without verifying its signature; an already
// expired token is a backend defect worth failing on.
func (u *VirtualUser) RunAdminFlow(ctx context.Context) schemas.ActorRun {
	run := schemas.ActorRun{ActorID: u.ID, Flow: schemas.FlowAdmin, StartedAt: time.Now()}

	var token string

	run.Steps = append(run.Steps, u.runStep(StepAdminLogin, func() (map[string]any, error) {
		resp, err := u.client.Login(ctx, u.adminUser, u.adminSecret)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("login returned status %d", resp.Status)
		}
		var payload struct {
			Token string `json:"token"`
		}
		if err := resp.JSON(&payload); err != nil || payload.Token == "" {
			return nil, fmt.Errorf("login response carries no token")
		}
		token = payload.Token

		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("issued token is not a parseable JWT: %w", err)
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, fmt.Errorf("issued token has an unreadable exp claim: %w", err)
		}
		if exp != nil && exp.Before(time.Now()) {
			return nil, fmt.Errorf("issued token expired at %s", exp.Time.Format(time.RFC3339))
		}
		return map[string]any{"token_expires": exp}, nil
	}))

	run.Steps = append(run.Steps, u.runStep(StepAdminListProducts, func() (map[string]any, error) {
		resp, err := u.client.Products(ctx, nil)
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, fmt.Errorf("authenticated listing returned status %d", resp.Status)
		}
		return map[string]any{"status": resp.Status}, nil
	}))

	run.Steps = append(run.Steps, u.runStep(StepAdminCreateProduct, func() (map[string]any, error) {
		resp, err := u.client.CreateProduct(ctx, token, map[string]any{
			"nombre":      "Producto de prueba",
			"precio":      1,
			"stock":       0,
			"descripcion": "Creado por el monitor sintético",
		})
		if err != nil {
			return nil, err
		}
		if resp.ServerError() {
			return nil, fmt.Errorf("product create crashed with status %d", resp.Status)
		}
		return map[string]any{"status": resp.Status}, nil
	}))

	run.Duration = time.Since(run.StartedAt)
	run.Status = schemas.RunCompleted
	if run.Failed() {
		run.Status = schemas.RunFailed
	}
	return run
}
