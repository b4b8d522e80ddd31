// internal/handlers/licensing.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/imi-licensing/internal/chain"
	"github.com/javajoker/imi-licensing/internal/i18n"
	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/services"
	"github.com/javajoker/imi-licensing/internal/utils"
)

type LicensingHandler struct {
	licensingService *services.LicensingService
	clock            chain.Clock
}

func NewLicensingHandler(licensingService *services.LicensingService, clock chain.Clock) *LicensingHandler {
	return &LicensingHandler{
		licensingService: licensingService,
		clock:            clock,
	}
}

type AgreementResponse struct {
	AgreementID uint64 `json:"agreement_id"`
	licensing.Agreement
	EndBlock uint64 `json:"end_block"`
}

type LicenseResponse struct {
	LicenseID uint64 `json:"license_id"`
	licensing.License
}

type RoyaltyRecipientResponse struct {
	AgreementID uint64              `json:"agreement_id"`
	Recipient   licensing.Principal `json:"recipient"`
	Share       uint64              `json:"share"`
}

type VerificationResponse struct {
	LicenseID   uint64              `json:"license_id"`
	Owner       licensing.Principal `json:"owner"`
	BlockHeight uint64              `json:"block_height"`
	Agreement   licensing.Agreement `json:"agreement"`
}

// callContext reads the caller and the block height once for the request.
func (h *LicensingHandler) callContext(c *gin.Context) (licensing.CallContext, bool) {
	principal, exists := utils.GetPrincipalFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return licensing.CallContext{}, false
	}
	return licensing.CallContext{
		Caller:      licensing.Principal(principal),
		BlockHeight: h.clock.Height(),
	}, true
}

// POST /agreements
func (h *LicensingHandler) CreateAgreement(c *gin.Context) {
	cc, ok := h.callContext(c)
	if !ok {
		return
	}

	var req services.CreateAgreementRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.licensingService.CreateAgreement(c.Request.Context(), cc, req.Terms())
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}

	utils.CreatedResponse(c, gin.H{"agreement_id": id})
}

// GET /agreements/:id
func (h *LicensingHandler) GetAgreement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	agreement, found, err := h.licensingService.AgreementDetails(c.Request.Context(), id)
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}
	if !found {
		utils.NotFoundResponse(c, "agreement")
		return
	}

	utils.SuccessResponse(c, AgreementResponse{
		AgreementID: id,
		Agreement:   agreement,
		EndBlock:    agreement.EndBlock(),
	})
}

// POST /agreements/:id/licenses
func (h *LicensingHandler) IssueLicense(c *gin.Context) {
	cc, ok := h.callContext(c)
	if !ok {
		return
	}
	agreementID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.IssueLicenseRequest
	if !bindJSON(c, &req) {
		return
	}

	id, err := h.licensingService.IssueLicense(c.Request.Context(), cc, agreementID, licensing.Principal(req.Licensee))
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}

	utils.CreatedResponse(c, gin.H{"license_id": id, "agreement_id": agreementID})
}

// PUT /agreements/:id/royalties/:recipient
func (h *LicensingHandler) SetRoyaltyRecipient(c *gin.Context) {
	cc, ok := h.callContext(c)
	if !ok {
		return
	}
	agreementID, ok := parseID(c, "id")
	if !ok {
		return
	}
	recipient, ok := principalParam(c, "recipient")
	if !ok {
		return
	}

	var req services.SetRoyaltyRecipientRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.licensingService.SetRoyaltyRecipient(c.Request.Context(), cc, agreementID, recipient, req.Share); err != nil {
		contractErrorResponse(c, err, true)
		return
	}

	utils.ResultResponse(c)
}

// GET /agreements/:id/royalties/:recipient
func (h *LicensingHandler) GetRoyaltyRecipient(c *gin.Context) {
	agreementID, ok := parseID(c, "id")
	if !ok {
		return
	}
	recipient, ok := principalParam(c, "recipient")
	if !ok {
		return
	}

	r, found, err := h.licensingService.RoyaltyRecipient(c.Request.Context(), agreementID, recipient)
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}
	if !found {
		utils.NotFoundResponse(c, "royalty")
		return
	}

	utils.SuccessResponse(c, RoyaltyRecipientResponse{
		AgreementID: agreementID,
		Recipient:   recipient,
		Share:       r.Share,
	})
}

// GET /licenses/:id
func (h *LicensingHandler) GetLicense(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	license, found, err := h.licensingService.LicenseDetails(c.Request.Context(), id)
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}
	if !found {
		utils.NotFoundResponse(c, "license")
		return
	}

	utils.SuccessResponse(c, LicenseResponse{LicenseID: id, License: license})
}

// POST /licenses/:id/transfer
func (h *LicensingHandler) TransferLicense(c *gin.Context) {
	cc, ok := h.callContext(c)
	if !ok {
		return
	}
	licenseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.TransferLicenseRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.licensingService.TransferLicense(c.Request.Context(), cc, licenseID, licensing.Principal(req.NewOwner)); err != nil {
		contractErrorResponse(c, err, true)
		return
	}

	utils.ResultResponse(c)
}

// GET /licenses/:id/verify
func (h *LicensingHandler) VerifyLicense(c *gin.Context) {
	licenseID, ok := parseID(c, "id")
	if !ok {
		return
	}

	// Verification is open to anonymous callers.
	principal, _ := utils.GetPrincipalFromContext(c)
	cc := licensing.CallContext{
		Caller:      licensing.Principal(principal),
		BlockHeight: h.clock.Height(),
	}

	v, err := h.licensingService.VerifyLicense(c.Request.Context(), cc, licenseID)
	if err != nil {
		contractErrorResponse(c, err, false)
		return
	}

	utils.SuccessResponse(c, VerificationResponse{
		LicenseID:   licenseID,
		Owner:       v.Owner,
		BlockHeight: cc.BlockHeight,
		Agreement:   v.Agreement,
	})
}

func principalParam(c *gin.Context, name string) (licensing.Principal, bool) {
	value := c.Param(name)
	if err := utils.ValidateVar(value, "required,principal"); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return "", false
	}
	return licensing.Principal(value), true
}
