package jwt

import "lingkod/internal/platform/middleware"

// MiddlewareAdapter bridges the JWT service to the middleware.TokenValidator
// interface without the middleware package importing jwt internals.
type MiddlewareAdapter struct {
	svc *Service
}

func NewMiddlewareAdapter(svc *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{svc: svc}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*middleware.ActorClaims, error) {
	claims, err := a.svc.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.ActorClaims{
		ActorID: claims.ActorID,
		LineID:  claims.LineID,
		Role:    claims.Role,
	}, nil
}
