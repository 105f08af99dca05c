package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	investmentdomain "github.com/groundstone/terravest/internal/investment/domain"
	"github.com/shopspring/decimal"
)

type createInvestmentRequest struct {
	ProjectID string `json:"projectId"`
	Amount    string `json:"amount"`
}

// CreateInvestment settles a share purchase and records it in the ledger.
func (s *Server) CreateInvestment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.Error(ErrUnauthorized)
		return
	}

	var req createInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		verr := &ValidationErrors{}
		verr.Add("body", "invalid request body")
		c.Error(verr)
		return
	}

	verr := &ValidationErrors{}
	projectID, err := snowflake.ParseString(req.ProjectID)
	if err != nil {
		verr.Add("projectId", "must be a valid project id")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		verr.Add("amount", "must be a decimal number")
	}
	if verr.HasErrors() {
		c.Error(verr)
		return
	}

	result, err := s.investmentSvc.Invest(c.Request.Context(), investmentdomain.InvestRequest{
		UserID:    user.ID,
		ProjectID: projectID,
		Amount:    amount,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"msg":       "success",
		"reference": result.Reference,
		"amount":    result.Amount,
		"total":     result.Total,
	})
}

// GetPortfolio returns the role-specific consolidated view for the caller.
func (s *Server) GetPortfolio(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.Error(ErrUnauthorized)
		return
	}

	view, err := s.portfolioSvc.GetPortfolio(c.Request.Context(), user.ID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}
