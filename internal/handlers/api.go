package handlers

import (
	"net/http"
	"strings"

	"github.com/domainaware/checkdmarc-web-frontend/internal/checker"
	"github.com/domainaware/checkdmarc-web-frontend/internal/dnsclient"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	Checker *checker.Checker
}

func NewAPIHandler(chk *checker.Checker) *APIHandler {
	return &APIHandler{Checker: chk}
}

// CheckDomain returns the full check results as JSON.
func (h *APIHandler) CheckDomain(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("domain"))
	normalized := dnsclient.NormalizeDomain(raw)
	ascii, err := dnsclient.DomainToASCII(normalized)
	if err != nil || !dnsclient.ValidateDomain(ascii) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid domain name"})
		return
	}

	results := h.Checker.CheckDomain(c.Request.Context(), ascii)

	if !getResultBool(results, "check_success") {
		c.JSON(http.StatusServiceUnavailable, results)
		return
	}
	if !getResultBool(results, "domain_exists") {
		c.JSON(http.StatusNotFound, results)
		return
	}

	c.JSON(http.StatusOK, results)
}
