package controllers

import (
	"context"
	"net/http"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/app"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

type HealthController struct {
	app *app.App
}

func NewHealthController(app *app.App) *HealthController {
	return &HealthController{
		app: app,
	}
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	// Check database connectivity
	if err := c.app.DB.Ping(context.Background()); err != nil {
		utils.Logger.WithError(err).Error("Database unreachable")
		utils.RespondErrorWithCode(
			w,
			http.StatusServiceUnavailable,
			utils.ErrCodeInternal,
			"Database unreachable",
			nil,
			err,
		)
		return
	}

	// Everything is OK
	resp := dtos.HealthCheckResponse{
		Status: "OK",
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
