package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/groundstone/terravest/internal/config"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	investmentdomain "github.com/groundstone/terravest/internal/investment/domain"
	"github.com/groundstone/terravest/internal/observability"
	portfoliodomain "github.com/groundstone/terravest/internal/portfolio/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
	"github.com/groundstone/terravest/internal/server"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// -- Stubs --

type identityStub struct {
	users map[snowflake.ID]identitydomain.User
}

func (s identityStub) FindUser(ctx context.Context, id snowflake.ID) (identitydomain.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return identitydomain.User{}, identitydomain.ErrUserNotFound
}

type projectStub struct {
	projects []projectdomain.Project
}

func (s projectStub) ListProjects(ctx context.Context) ([]projectdomain.Project, error) {
	return s.projects, nil
}

func (s projectStub) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]projectdomain.Project, error) {
	var owned []projectdomain.Project
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	return owned, nil
}

func (s projectStub) FindByID(ctx context.Context, id snowflake.ID) (projectdomain.Project, error) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return projectdomain.Project{}, projectdomain.ErrNotFound
}

type investmentStub struct {
	result investmentdomain.InvestResult
	err    error
}

func (s investmentStub) Invest(ctx context.Context, req investmentdomain.InvestRequest) (investmentdomain.InvestResult, error) {
	if s.err != nil {
		return investmentdomain.InvestResult{}, s.err
	}
	return s.result, nil
}

type portfolioStub struct {
	view portfoliodomain.View
	err  error
}

func (s portfolioStub) GetPortfolio(ctx context.Context, userID snowflake.ID) (portfoliodomain.View, error) {
	if s.err != nil {
		return portfoliodomain.View{}, s.err
	}
	return s.view, nil
}

var (
	investorID = snowflake.ID(11)
	ownerID    = snowflake.ID(12)
	projectID  = snowflake.ID(21)
)

func fixtureUsers() map[snowflake.ID]identitydomain.User {
	return map[snowflake.ID]identitydomain.User{
		investorID: {
			ID:   investorID,
			Role: identitydomain.RoleInvestor,
			Wallet: identitydomain.Wallet{
				ID:      "wallet-11",
				Address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
			},
		},
		ownerID: {
			ID:   ownerID,
			Role: identitydomain.RoleProjectOwner,
			Wallet: identitydomain.Wallet{
				ID:      "wallet-12",
				Address: "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
			},
		},
	}
}

func fixtureProjects() []projectdomain.Project {
	return []projectdomain.Project{
		{
			ID:        projectID,
			Name:      "Teak Plantation Alpha",
			OwnerID:   ownerID,
			Allowance: projectdomain.AllowanceApproved,
			Valuation: projectdomain.Valuation{
				AssetValue: decimal.NewFromInt(3_000_000),
				Tonnage:    decimal.NewFromInt(1000),
			},
		},
	}
}

func newTestServer(t *testing.T, investSvc investmentdomain.Service, portfolioSvc portfoliodomain.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := server.NewEngine(observability.Config{}, nil)
	server.NewServer(server.ServerParams{
		Gin:           engine,
		Cfg:           config.Config{AuthJWTSecret: testSecret},
		IdentitySvc:   identityStub{users: fixtureUsers()},
		ProjectSvc:    projectStub{projects: fixtureProjects()},
		InvestmentSvc: investSvc,
		PortfolioSvc:  portfolioSvc,
	})
	return engine
}

func bearerToken(t *testing.T, userID snowflake.ID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID.String()})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(engine *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	engine := newTestServer(t, investmentStub{}, portfolioStub{})

	rec := doRequest(engine, http.MethodGet, "/api/investments", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(engine, http.MethodGet, "/api/investments", "Bearer not-a-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": investorID.String()})
	signed, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	rec = doRequest(engine, http.MethodGet, "/api/investments", "Bearer "+signed, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateInvestmentSuccess(t *testing.T) {
	engine := newTestServer(t, investmentStub{
		result: investmentdomain.InvestResult{
			Reference: "0xtx-1",
			Amount:    decimal.NewFromInt(100),
			Total:     decimal.NewFromInt(150),
		},
	}, portfolioStub{})

	body := `{"projectId":"` + projectID.String() + `","amount":"100"}`
	rec := doRequest(engine, http.MethodPost, "/api/investments", bearerToken(t, investorID), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "success", resp["msg"])
	require.Equal(t, "0xtx-1", resp["reference"])
}

func TestCreateInvestmentValidation(t *testing.T) {
	engine := newTestServer(t, investmentStub{}, portfolioStub{})

	body := `{"projectId":"not-a-number","amount":"abc"}`
	rec := doRequest(engine, http.MethodPost, "/api/investments", bearerToken(t, investorID), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "validation_failed", resp["type"])
}

func TestCreateInvestmentErrorMapping(t *testing.T) {
	body := `{"projectId":"` + projectID.String() + `","amount":"100"}`

	engine := newTestServer(t, investmentStub{err: investmentdomain.ErrSettlementFailed}, portfolioStub{})
	rec := doRequest(engine, http.MethodPost, "/api/investments", bearerToken(t, investorID), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "settlement_failed", resp["type"])

	// A failed ledger write after confirmed settlement is a different
	// condition and maps to a different type and status.
	engine = newTestServer(t, investmentStub{err: investmentdomain.ErrLedgerWriteFailed}, portfolioStub{})
	rec = doRequest(engine, http.MethodPost, "/api/investments", bearerToken(t, investorID), body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ledger_write_failed", resp["type"])
}

func TestGetPortfolioForbiddenRole(t *testing.T) {
	engine := newTestServer(t, investmentStub{}, portfolioStub{err: portfoliodomain.ErrPermissionDenied})

	rec := doRequest(engine, http.MethodGet, "/api/investments", bearerToken(t, investorID), "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "permission_denied", resp["type"])
}

func TestGetPortfolioInvestorPayload(t *testing.T) {
	view := portfoliodomain.View{
		Role: identitydomain.RoleInvestor,
		Investor: &portfoliodomain.InvestorView{
			Total: portfoliodomain.InvestorTotal{
				Investment: decimal.NewFromInt(150),
				Claimed:    decimal.NewFromInt(7),
				Claimable:  decimal.NewFromInt(3),
			},
			Data: []portfoliodomain.InvestorEntry{{
				Project: fixtureProjects()[0],
				Amount:  decimal.NewFromInt(150),
				Price:   decimal.NewFromInt(3),
			}},
		},
	}
	engine := newTestServer(t, investmentStub{}, portfolioStub{view: view})

	rec := doRequest(engine, http.MethodGet, "/api/investments", bearerToken(t, investorID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Role     string `json:"role"`
		Investor *struct {
			Total struct {
				Investment decimal.Decimal `json:"investment"`
			} `json:"total"`
			Data []json.RawMessage `json:"data"`
		} `json:"investor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "investor", resp.Role)
	require.NotNil(t, resp.Investor)
	require.True(t, resp.Investor.Total.Investment.Equal(decimal.NewFromInt(150)))
	require.Len(t, resp.Investor.Data, 1)
}

func TestListProjectsScopedByRole(t *testing.T) {
	engine := newTestServer(t, investmentStub{}, portfolioStub{})

	rec := doRequest(engine, http.MethodGet, "/api/projects", bearerToken(t, investorID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []projectdomain.Project `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)

	rec = doRequest(engine, http.MethodGet, "/api/projects", bearerToken(t, ownerID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, ownerID, resp.Data[0].OwnerID)
}
