package restapi

import (
	"context"
	"fmt"
	"net/http"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/app/store"
	"portfolio_tracker/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// visibleHistoryGroups is how many top groups get their price history fetched
// eagerly. The rest are parked pending until a client expands them.
const visibleHistoryGroups = 10

// HistoryView is the wire shape of one history entry.
type HistoryView struct {
	Status    string    `json:"status"`
	Trend     []float64 `json:"trend,omitempty"`
	ChangePct float64   `json:"changePct"`
}

// GroupView is one grouped asset plus its history state.
type GroupView struct {
	entity.GroupedAsset
	History *HistoryView `json:"history,omitempty"`
}

// APIPortfolioResponse is the envelope for the portfolio endpoint.
type APIPortfolioResponse struct {
	Data struct {
		Address       string      `json:"address"`
		Groups        []GroupView `json:"groups"`
		TotalValueUSD float64     `json:"totalValueUsd"`
	} `json:"data"`
	ServiceErrors []entity.PortfolioError `json:"service_errors,omitempty"`
	StatusMessage string                  `json:"status_message"`
}

// PortfolioHandler serves the portfolio, gas, and history endpoints.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	priceService     *service.PriceService
	historyService   *service.HistoryService
	gasService       *service.GasService
	aggregator       *service.SymbolAggregator
	store            *store.Store
	logger           port.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(
	ps port.PortfolioService,
	prices *service.PriceService,
	histories *service.HistoryService,
	gas *service.GasService,
	aggregator *service.SymbolAggregator,
	st *store.Store,
	l port.Logger,
) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: ps,
		priceService:     prices,
		historyService:   histories,
		gasService:       gas,
		aggregator:       aggregator,
		store:            st,
		logger:           l,
	}
}

// GetPortfolioHandler fetches and prices a wallet's cross-chain portfolio.
// Partial chain failures ride along in service_errors; only an invalid
// address or a total failure produces an error status. Every call claims its
// price keys under a fresh epoch, so the refresh route reuses this handler
// directly and concurrent requests for different wallets do not collide.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	ctx := c.Request.Context()
	address := c.Param("address")

	assets, serviceErrors, err := h.portfolioService.FetchPortfolio(ctx, address)
	if err != nil {
		if len(serviceErrors) > 0 {
			c.JSON(http.StatusBadGateway, APIPortfolioResponse{
				ServiceErrors: serviceErrors,
				StatusMessage: err.Error(),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priceErr := h.priceService.FetchPrices(ctx, assets)
	assets = h.priceService.ApplyPrices(assets)
	groups := h.aggregator.GroupBySymbol(assets)

	// History fetches are slow and paced; kick them off detached so the
	// response does not wait on them. Clients poll or re-request to see
	// trends fill in.
	visible, deferred := h.splitHistoryKeys(groups)
	go h.historyService.FetchHistories(context.WithoutCancel(ctx), visible, deferred)

	response := APIPortfolioResponse{ServiceErrors: serviceErrors}
	response.Data.Address = address
	response.Data.Groups = h.attachHistories(groups)
	for _, group := range groups {
		response.Data.TotalValueUSD += group.TotalValue
	}

	switch {
	case priceErr != nil:
		response.StatusMessage = "Portfolio retrieved, but no prices are available yet. Price retries are running in the background."
	case len(serviceErrors) > 0:
		response.StatusMessage = "Portfolio retrieved. Some chains encountered errors."
	case len(groups) == 0:
		response.StatusMessage = "No assets found for this address on the enabled chains."
	default:
		response.StatusMessage = "Portfolio retrieved successfully."
	}

	c.JSON(http.StatusOK, response)
}

// GetGasSpentHandler returns the address's lifetime gas spend in ether.
func (h *PortfolioHandler) GetGasSpentHandler(c *gin.Context) {
	address := c.Param("address")
	c.JSON(http.StatusOK, gin.H{
		"address":       address,
		"gasSpentEther": h.gasService.TotalGasSpent(c.Request.Context(), address),
	})
}

// GetHistoryHandler returns the history entry for one oracle key, expanding
// it first if it was deferred.
func (h *PortfolioHandler) GetHistoryHandler(c *gin.Context) {
	key := fmt.Sprintf("%s:%s", c.Param("slug"), c.Param("address"))

	h.historyService.Expand(c.Request.Context(), key)

	entry, ok := h.store.History(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no history tracked for key", "key": key})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key": key,
		"history": HistoryView{
			Status:    string(entry.Status),
			Trend:     entry.Trend,
			ChangePct: entry.ChangePct,
		},
	})
}

// splitHistoryKeys derives oracle keys group by group, in display order, and
// splits them into the eagerly fetched head and the deferred tail.
func (h *PortfolioHandler) splitHistoryKeys(groups []entity.GroupedAsset) (visible, deferred []string) {
	seen := make(map[string]struct{})
	for i, group := range groups {
		for _, asset := range group.Assets {
			key, ok := h.priceService.DeriveKey(asset)
			if !ok {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if i < visibleHistoryGroups {
				visible = append(visible, key)
			} else {
				deferred = append(deferred, key)
			}
		}
	}
	return visible, deferred
}

// attachHistories joins whatever history state the store already holds onto
// the group views.
func (h *PortfolioHandler) attachHistories(groups []entity.GroupedAsset) []GroupView {
	views := make([]GroupView, len(groups))
	for i, group := range groups {
		views[i] = GroupView{GroupedAsset: group}
		for _, asset := range group.Assets {
			key, ok := h.priceService.DeriveKey(asset)
			if !ok {
				continue
			}
			if entry, found := h.store.History(key); found {
				views[i].History = &HistoryView{
					Status:    string(entry.Status),
					Trend:     entry.Trend,
					ChangePct: entry.ChangePct,
				}
				break
			}
		}
	}
	return views
}
