// Package api provides HTTP handlers for the outdial control surface.
package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) stats(ctx forge.Context) error {
	s := a.eng.Stats(ctx.Context())
	return ctx.JSON(http.StatusOK, StatsResponse{
		ActiveExecutions: s.ActiveExecutions,
		ActiveCalls:      s.ActiveCalls,
		Executions:       s.Executions,
	})
}
