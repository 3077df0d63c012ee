package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prlens/prlens/internal/repositories"
	"github.com/prlens/prlens/internal/services"
)

type RuleHandler struct {
	rules         *repositories.ExtractedRuleRepository
	exportService *services.ExportService
}

func NewRuleHandler(rules *repositories.ExtractedRuleRepository, exportService *services.ExportService) *RuleHandler {
	return &RuleHandler{
		rules:         rules,
		exportService: exportService,
	}
}

// List returns extracted rules filtered by category, severity, and validity
func (h *RuleHandler) List(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	rules, err := h.rules.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules, "count": len(rules)})
}

// SetValidity marks a rule as valid or invalid
func (h *RuleHandler) SetValidity(c *gin.Context) {
	var body struct {
		Valid *bool `json:"valid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a boolean valid field"})
		return
	}

	if err := h.rules.SetValidity(c.Param("id"), *body.Valid); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "valid": *body.Valid})
}

// Export streams the rules workbook as an xlsx attachment
func (h *RuleHandler) Export(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.ExportRules(&buf, filter); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := "rules-" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *RuleHandler) parseFilter(c *gin.Context) (repositories.RuleFilter, bool) {
	filter := repositories.RuleFilter{
		Category: c.Query("category"),
		Severity: c.Query("severity"),
	}

	if validParam := c.Query("valid"); validParam != "" {
		valid, err := strconv.ParseBool(validParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid must be a boolean"})
			return filter, false
		}
		filter.Valid = &valid
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return filter, false
		}
		filter.Limit = limit
	}

	return filter, true
}
