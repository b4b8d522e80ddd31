// internal/handlers/admin.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/imi-licensing/internal/chain"
	"github.com/javajoker/imi-licensing/internal/i18n"
	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
	"github.com/javajoker/imi-licensing/internal/services"
	"github.com/javajoker/imi-licensing/internal/utils"
)

// IntentLister is the read side of the intent outbox.
type IntentLister interface {
	ListIntents(ctx context.Context, params utils.PaginationParams) ([]models.ValueIntent, int64, error)
}

type SnapshotExporter interface {
	Export(ctx context.Context) (*services.ArchiveResult, error)
}

type AdminHandler struct {
	licensingService *services.LicensingService
	clock            chain.Clock
	intents          IntentLister
	archive          SnapshotExporter
}

func NewAdminHandler(licensingService *services.LicensingService, clock chain.Clock, intents IntentLister, archive SnapshotExporter) *AdminHandler {
	return &AdminHandler{
		licensingService: licensingService,
		clock:            clock,
		intents:          intents,
		archive:          archive,
	}
}

// PUT /admin/platform-fee
func (h *AdminHandler) SetPlatformFee(c *gin.Context) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.SetPlatformFeeRequest
	if !bindJSON(c, &req) {
		return
	}

	cc := licensing.CallContext{
		Caller:      licensing.Principal(principal),
		BlockHeight: h.clock.Height(),
	}
	if err := h.licensingService.SetPlatformFee(c.Request.Context(), cc, req.Fee); err != nil {
		contractErrorResponse(c, err, true)
		return
	}

	utils.ResultResponse(c)
}

// GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.licensingService.Settings(c.Request.Context())
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}

	sequence, head := h.licensingService.ReceiptHead()
	utils.SuccessResponse(c, gin.H{
		"owner":             h.licensingService.Owner(),
		"platform_fee":      settings.PlatformFee,
		"last_agreement_id": settings.LastAgreementID,
		"last_license_id":   settings.LastLicenseID,
		"block_height":      h.clock.Height(),
		"receipt_sequence":  sequence,
		"receipt_head":      head,
	})
}

// GET /admin/intents
func (h *AdminHandler) ListIntents(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if h.intents == nil {
		utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyOutboxUnavailable))
		return
	}

	params := utils.GetPaginationParams(c)
	if params.Sort == "created_at" {
		params.Sort = "receipt_sequence"
	}
	if params.Status != "" {
		switch models.IntentStatus(params.Status) {
		case models.IntentStatusPending, models.IntentStatusSettled, models.IntentStatusFailed:
		default:
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
			return
		}
	}

	rows, total, err := h.intents.ListIntents(c.Request.Context(), params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(rows, total, params))
}

// POST /admin/snapshots
func (h *AdminHandler) ExportSnapshot(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	if h.archive == nil {
		utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyArchiveUnavailable))
		return
	}

	result, err := h.archive.Export(c.Request.Context())
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeySnapshotArchived),
		"snapshot": result,
	})
}
