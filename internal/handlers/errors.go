// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/imi-licensing/internal/i18n"
	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/services"
	"github.com/javajoker/imi-licensing/internal/utils"
)

type contractStatus struct {
	status int
	code   string
	key    string
}

var contractStatuses = map[licensing.Kind]contractStatus{
	licensing.KindUnauthorized:                 {http.StatusForbidden, "UNAUTHORIZED", i18n.KeyContractUnauthorized},
	licensing.KindInvalidTerms:                 {http.StatusBadRequest, "INVALID_TERMS", i18n.KeyContractInvalidTerms},
	licensing.KindNotAuthorizedOrAlreadyIssued: {http.StatusConflict, "NOT_AUTHORIZED_OR_ALREADY_ISSUED", i18n.KeyContractNotAuthorizedIssue},
	licensing.KindTransferNotAllowed:           {http.StatusConflict, "TRANSFER_NOT_ALLOWED", i18n.KeyContractTransferNotAllowed},
	licensing.KindNotFound:                     {http.StatusNotFound, "NOT_FOUND", i18n.KeyContractNotFound},
	licensing.KindExpired:                      {http.StatusGone, "EXPIRED", i18n.KeyContractExpired},
}

// contractErrorResponse writes err in the response envelope. boolean marks
// operations whose contract result is a bool; their failures carry
// details.result=false.
func contractErrorResponse(c *gin.Context, err error, boolean bool) {
	lang := utils.GetLangFromContext(c)

	var cerr *licensing.Error
	if !errors.As(err, &cerr) {
		if errors.Is(err, services.ErrStateUnavailable) {
			utils.ServiceUnavailableResponse(c, i18n.T(lang, i18n.KeyStateUnavailable))
			return
		}
		logrus.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Error("Contract operation failed")
		utils.InternalErrorResponse(c, "")
		return
	}

	st, ok := contractStatuses[cerr.Kind]
	if !ok {
		utils.InternalErrorResponse(c, "")
		return
	}

	details := gin.H{}
	if boolean {
		details["result"] = false
	}
	if cerr.Code != licensing.CodeNone {
		details["contract_code"] = uint32(cerr.Code)
	}
	if cerr.Reason != nil {
		details["reason"] = cerr.Reason.Error()
	}

	utils.ErrorResponse(c, st.status, st.code, i18n.T(lang, st.key), details)
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return 0, false
	}
	return id, true
}

// bindJSON decodes and validates the request body.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}
