package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/outdial/id"
	"github.com/xraph/outdial/schedule"
)

func (a *API) createSchedule(ctx forge.Context, req *CreateScheduleRequest) (*schedule.Entry, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, forge.BadRequest("schedule name is required")
	}
	campaignID, err := id.ParseCampaignID(req.CampaignID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	entry, err := a.eng.ScheduleStart(ctx.Context(), req.Name, req.Schedule, campaignID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return entry, ctx.JSON(http.StatusCreated, entry)
}

func (a *API) listSchedules(ctx forge.Context, req *ListSchedulesRequest) ([]*schedule.Entry, error) {
	entries, err := a.eng.Store().ListSchedules(ctx.Context())
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	// Apply basic pagination.
	limit := defaultLimit(req.Limit)
	offset := req.Offset
	if offset > len(entries) {
		offset = len(entries)
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	page := entries[offset:end]

	return page, ctx.JSON(http.StatusOK, page)
}

func (a *API) getSchedule(ctx forge.Context, _ *GetScheduleRequest) (*schedule.Entry, error) {
	scheduleID, err := id.ParseScheduleID(ctx.Param("scheduleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid schedule ID: %v", err))
	}

	entry, err := a.eng.Store().GetSchedule(ctx.Context(), scheduleID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return entry, ctx.JSON(http.StatusOK, entry)
}

func (a *API) enableSchedule(ctx forge.Context, _ *EnableScheduleRequest) (*schedule.Entry, error) {
	return a.setScheduleEnabled(ctx, true)
}

func (a *API) disableSchedule(ctx forge.Context, _ *DisableScheduleRequest) (*schedule.Entry, error) {
	return a.setScheduleEnabled(ctx, false)
}

func (a *API) setScheduleEnabled(ctx forge.Context, enabled bool) (*schedule.Entry, error) {
	scheduleID, err := id.ParseScheduleID(ctx.Param("scheduleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid schedule ID: %v", err))
	}

	entry, err := a.eng.Store().GetSchedule(ctx.Context(), scheduleID)
	if err != nil {
		return nil, mapEngineError(err)
	}

	entry.Enabled = enabled
	entry.Touch()
	if updateErr := a.eng.Store().UpdateSchedule(ctx.Context(), entry); updateErr != nil {
		return nil, fmt.Errorf("update schedule: %w", updateErr)
	}
	return entry, ctx.JSON(http.StatusOK, entry)
}

func (a *API) deleteSchedule(ctx forge.Context, _ *DeleteScheduleRequest) (*struct{}, error) {
	scheduleID, err := id.ParseScheduleID(ctx.Param("scheduleId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid schedule ID: %v", err))
	}

	if delErr := a.eng.Store().DeleteSchedule(ctx.Context(), scheduleID); delErr != nil {
		return nil, mapEngineError(delErr)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}
