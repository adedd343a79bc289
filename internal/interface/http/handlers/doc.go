// Package handlers contains reusable HTTP building blocks.
//
// # Health Checks
//
// CompositeHealthChecker runs named checks in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v0.1.0")
//	checker.AddCheck("store", handlers.NewStoreCheck(store))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("health check failed: %s", status.Message)
//	}
//
// # Authentication
//
// TokenAuth issues HS256 bearer tokens whose subject is the profile id and
// guards routes with its Middleware:
//
//	auth := handlers.NewTokenAuth(secret, 72*time.Hour)
//	token, expiresAt, err := auth.Issue(p.ID, p.Email)
//
//	router.Use(auth.Middleware)
//
// Handlers behind the middleware read the claims with ClaimsFromContext.
//
// # Middleware
//
// SecurityHeadersMiddleware and RequestSizeLimitMiddleware compose with
// Chain, outermost first:
//
//	h := handlers.Chain(
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	)(router)
package handlers
