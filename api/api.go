package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/engine"
	"github.com/xraph/outdial/schedule"
)

// API wires all Forge-style HTTP handlers together for the dispatch engine.
type API struct {
	eng    *engine.Engine
	router forge.Router
}

// New creates an API from a dispatch Engine.
func New(eng *engine.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	a.RegisterRoutes(a.router)
	return a.router.Handler()
}

// RegisterRoutes registers all outdial API routes into the given Forge router
// with full OpenAPI metadata.
func (a *API) RegisterRoutes(router forge.Router) {
	a.registerCampaignRoutes(router)
	a.registerScheduleRoutes(router)
	a.registerStatsRoutes(router)
}

// registerCampaignRoutes registers campaign control routes.
func (a *API) registerCampaignRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("campaigns"))

	_ = g.POST("/campaigns/:campaignId/start", a.startCampaign,
		forge.WithSummary("Start campaign"),
		forge.WithDescription("Begins a new run for a draft or finished campaign."),
		forge.WithOperationID("startCampaign"),
		forge.WithResponseSchema(http.StatusOK, "Run admission", StartCampaignResponse{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/campaigns/:campaignId/pause", a.pauseCampaign,
		forge.WithSummary("Pause campaign"),
		forge.WithDescription("Halts dispatch for a running campaign; in-flight calls finish."),
		forge.WithOperationID("pauseCampaign"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/campaigns/:campaignId/resume", a.resumeCampaign,
		forge.WithSummary("Resume campaign"),
		forge.WithDescription("Restarts dispatch for a paused or degraded campaign."),
		forge.WithOperationID("resumeCampaign"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/campaigns/:campaignId/cancel", a.cancelCampaign,
		forge.WithSummary("Cancel campaign"),
		forge.WithDescription("Terminates a campaign's run. No new calls dispatch."),
		forge.WithOperationID("cancelCampaign"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/campaigns/:campaignId/status", a.campaignStatus,
		forge.WithSummary("Campaign status"),
		forge.WithDescription("Returns the progress of a campaign's run."),
		forge.WithOperationID("campaignStatus"),
		forge.WithResponseSchema(http.StatusOK, "Run progress", engine.ExecutionStatus{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/campaigns/:campaignId/attempts", a.listAttempts,
		forge.WithSummary("List call attempts"),
		forge.WithDescription("Returns a campaign's call attempts in placement order."),
		forge.WithOperationID("listAttempts"),
		forge.WithRequestSchema(ListAttemptsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Call attempts", []*attempt.CallAttempt{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/campaigns/:campaignId", a.getCampaign,
		forge.WithSummary("Get campaign"),
		forge.WithDescription("Returns details of a specific campaign."),
		forge.WithOperationID("getCampaign"),
		forge.WithResponseSchema(http.StatusOK, "Campaign details", &campaign.Campaign{}),
		forge.WithErrorResponses(),
	)
}

// registerScheduleRoutes registers recurring-start management routes.
func (a *API) registerScheduleRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("schedules"))

	_ = g.POST("/schedules", a.createSchedule,
		forge.WithSummary("Create schedule"),
		forge.WithDescription("Registers a recurring start for a campaign."),
		forge.WithOperationID("createSchedule"),
		forge.WithRequestSchema(CreateScheduleRequest{}),
		forge.WithCreatedResponse(&schedule.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/schedules", a.listSchedules,
		forge.WithSummary("List schedules"),
		forge.WithDescription("Returns all registered schedule entries."),
		forge.WithOperationID("listSchedules"),
		forge.WithRequestSchema(ListSchedulesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Schedule entries", []*schedule.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.GET("/schedules/:scheduleId", a.getSchedule,
		forge.WithSummary("Get schedule"),
		forge.WithDescription("Returns details of a specific schedule entry."),
		forge.WithOperationID("getSchedule"),
		forge.WithResponseSchema(http.StatusOK, "Schedule entry details", &schedule.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/schedules/:scheduleId/enable", a.enableSchedule,
		forge.WithSummary("Enable schedule"),
		forge.WithDescription("Enables a disabled schedule entry."),
		forge.WithOperationID("enableSchedule"),
		forge.WithResponseSchema(http.StatusOK, "Enabled schedule entry", &schedule.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.POST("/schedules/:scheduleId/disable", a.disableSchedule,
		forge.WithSummary("Disable schedule"),
		forge.WithDescription("Disables a schedule entry so it no longer fires."),
		forge.WithOperationID("disableSchedule"),
		forge.WithResponseSchema(http.StatusOK, "Disabled schedule entry", &schedule.Entry{}),
		forge.WithErrorResponses(),
	)

	_ = g.DELETE("/schedules/:scheduleId", a.deleteSchedule,
		forge.WithSummary("Delete schedule"),
		forge.WithDescription("Permanently removes a schedule entry."),
		forge.WithOperationID("deleteSchedule"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

// registerStatsRoutes registers aggregate statistics routes.
func (a *API) registerStatsRoutes(router forge.Router) {
	g := router.Group("/v1", forge.WithGroupTags("stats"))

	_ = g.GET("/stats", a.stats,
		forge.WithSummary("Dispatch stats"),
		forge.WithDescription("Returns aggregate statistics for active executions and attempts."),
		forge.WithOperationID("dispatchStats"),
		forge.WithResponseSchema(http.StatusOK, "Dispatch statistics", StatsResponse{}),
		forge.WithErrorResponses(),
	)
}
