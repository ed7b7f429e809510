package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/outdial"
	"github.com/xraph/outdial/attempt"
	"github.com/xraph/outdial/campaign"
	"github.com/xraph/outdial/engine"
	"github.com/xraph/outdial/id"
)

func (a *API) startCampaign(ctx forge.Context, _ *StartCampaignRequest) (*StartCampaignResponse, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	res, err := a.eng.StartCampaign(ctx.Context(), campaignID)
	if err != nil {
		return nil, mapEngineError(err)
	}

	resp := &StartCampaignResponse{
		ExecutionID: res.ExecutionID.String(),
		Status:      string(res.Status),
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) pauseCampaign(ctx forge.Context, _ *PauseCampaignRequest) (*struct{}, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	if err := a.eng.PauseCampaign(ctx.Context(), campaignID); err != nil {
		return nil, mapEngineError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) resumeCampaign(ctx forge.Context, _ *ResumeCampaignRequest) (*struct{}, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	if err := a.eng.ResumeCampaign(ctx.Context(), campaignID); err != nil {
		return nil, mapEngineError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) cancelCampaign(ctx forge.Context, _ *CancelCampaignRequest) (*struct{}, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	if err := a.eng.CancelCampaign(ctx.Context(), campaignID); err != nil {
		return nil, mapEngineError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) getCampaign(ctx forge.Context, _ *GetCampaignRequest) (*campaign.Campaign, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	c, err := a.eng.Store().GetCampaign(ctx.Context(), campaignID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return c, ctx.JSON(http.StatusOK, c)
}

func (a *API) campaignStatus(ctx forge.Context, _ *CampaignStatusRequest) (*engine.ExecutionStatus, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	status, err := a.eng.GetExecutionStatus(ctx.Context(), campaignID)
	if err != nil {
		return nil, mapEngineError(err)
	}
	return &status, ctx.JSON(http.StatusOK, status)
}

func (a *API) listAttempts(ctx forge.Context, req *ListAttemptsRequest) ([]*attempt.CallAttempt, error) {
	campaignID, err := id.ParseCampaignID(ctx.Param("campaignId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid campaign ID: %v", err))
	}

	attempts, err := a.eng.Store().ListAttempts(ctx.Context(), campaignID, attempt.ListOpts{
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, ctx.JSON(http.StatusOK, attempts)
}

// mapEngineError converts outdial sentinel errors to forge HTTP errors.
func mapEngineError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if isRejected(err) {
		return forge.BadRequest(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, outdial.ErrCampaignNotFound) ||
		errors.Is(err, outdial.ErrAgentNotFound) ||
		errors.Is(err, outdial.ErrContactNotFound) ||
		errors.Is(err, outdial.ErrAttemptNotFound) ||
		errors.Is(err, outdial.ErrScheduleNotFound) ||
		errors.Is(err, outdial.ErrExecutionNotFound)
}

// isRejected covers requests that are well-formed but not admissible in the
// campaign's current state.
func isRejected(err error) bool {
	return errors.Is(err, outdial.ErrExecutionExists) ||
		errors.Is(err, outdial.ErrCampaignNotStartable) ||
		errors.Is(err, outdial.ErrNoEligibleContacts) ||
		errors.Is(err, outdial.ErrNotRunning) ||
		errors.Is(err, outdial.ErrNotPaused) ||
		errors.Is(err, outdial.ErrInvalidTransition) ||
		errors.Is(err, outdial.ErrScheduleAlreadyExists)
}
