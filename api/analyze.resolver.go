package api

import (
	"context"
	"errors"
	"fmt"
	"frontierbacktest/internal/app"
	"frontierbacktest/internal/domain"
	"frontierbacktest/internal/logger"
	"time"

	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	// dates as YYYY-MM-DD, ascending; prices keyed by symbol, one
	// value per date
	Dates  []string             `json:"dates"`
	Prices map[string][]float64 `json:"prices"`

	InitialCapital    float64 `json:"initialCapital"`
	RiskFreeRate      float64 `json:"riskFreeRate"`
	LongOnly          *bool   `json:"longOnly"`
	NumFrontierPoints int     `json:"numFrontierPoints"`

	StepSize        int     `json:"stepSize"`
	MinWindow       int     `json:"minWindow"`
	MaxWindow       int     `json:"maxWindow"`
	FastCap         int     `json:"fastCap"`
	TransactionCost float64 `json:"transactionCost"`
	RankMetric      string  `json:"rankMetric"`
}

func (m ApiHandler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	dates := make([]time.Time, 0, len(req.Dates))
	for _, raw := range req.Dates {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			returnErrorJsonCode(fmt.Errorf("bad date %q: %w", raw, err), c, 400)
			return
		}
		dates = append(dates, date)
	}

	panel, err := domain.NewPricePanel(dates, req.Prices)
	if err != nil {
		returnErrorJsonCode(err, c, boundaryErrorCode(err))
		return
	}

	longOnly := true
	if req.LongOnly != nil {
		longOnly = *req.LongOnly
	}
	numFrontierPoints := req.NumFrontierPoints
	if numFrontierPoints == 0 {
		numFrontierPoints = 50
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContextKey, m.Logger)
	response, err := m.AnalyzeHandler.Analyze(ctx, app.AnalyzeInput{
		Panel:             panel,
		InitialCapital:    req.InitialCapital,
		RiskFreeRate:      req.RiskFreeRate,
		LongOnly:          longOnly,
		NumFrontierPoints: numFrontierPoints,
		StepSize:          req.StepSize,
		MinWindow:         req.MinWindow,
		MaxWindow:         req.MaxWindow,
		FastCap:           req.FastCap,
		TransactionCost:   req.TransactionCost,
		RankMetric:        req.RankMetric,
	})
	if err != nil {
		if code := boundaryErrorCode(err); code == 400 {
			returnErrorJsonCode(err, c, 400)
		} else {
			returnErrorJson(err, c)
		}
		return
	}

	c.JSON(200, response)
}

// boundaryErrorCode maps validation-class failures to 400 and
// everything else to 500.
func boundaryErrorCode(err error) int {
	var (
		validation   domain.InputValidationError
		insufficient domain.InsufficientDataError
		integrity    domain.DataIntegrityError
	)
	if errors.As(err, &validation) || errors.As(err, &insufficient) || errors.As(err, &integrity) {
		return 400
	}
	return 500
}
