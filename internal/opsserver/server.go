package opsserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opinionbot/gotrader/internal/journal"
	"github.com/opinionbot/gotrader/internal/trading"
	"github.com/opinionbot/gotrader/pkg/logger"
)

// Server 只读运维接口：查看账户列表、单账户持仓和批次运行记录。
// 不暴露任何下单能力。
type Server struct {
	accounts []*trading.AccountContext
	journal  *journal.Journal // 可为 nil
	httpSrv  *http.Server
}

// New 创建运维接口服务
func New(accounts []*trading.AccountContext, jn *journal.Journal) *Server {
	return &Server{accounts: accounts, journal: jn}
}

// Router 构建路由
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/accounts", s.handleAccountsList)
	api.GET("/accounts/:idx/positions", s.handleAccountPositions)
	api.GET("/accounts/:idx/summary", s.handleAccountSummary)
	api.GET("/runs", s.handleRunsList)
	api.GET("/runs/:id/results", s.handleRunResults)

	return r
}

// Start 启动 HTTP 服务（非阻塞）
func (s *Server) Start(listen string) error {
	s.httpSrv = &http.Server{
		Addr:              listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("运维接口异常退出: %v", err)
		}
	}()
	logger.Infof("运维接口已启动: http://%s", listen)
	return nil
}

// Stop 优雅停止 HTTP 服务
func (s *Server) Stop(ctx context.Context) {
	if s.httpSrv != nil {
		_ = s.httpSrv.Shutdown(ctx)
	}
}

func (s *Server) handleAccountsList(c *gin.Context) {
	type accountView struct {
		Index  int    `json:"index"`
		Remark string `json:"remark"`
		EOA    string `json:"eoa_address"`
	}
	out := make([]accountView, 0, len(s.accounts))
	for i, acc := range s.accounts {
		out = append(out, accountView{
			Index:  i + 1,
			Remark: acc.Config.Remark,
			EOA:    acc.Config.EOAAddress,
		})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

// accountByParam 解析 :idx 参数（1-based）
func (s *Server) accountByParam(c *gin.Context) (*trading.AccountContext, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 1 || idx > len(s.accounts) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return nil, false
	}
	return s.accounts[idx-1], true
}

func (s *Server) handleAccountPositions(c *gin.Context) {
	acc, ok := s.accountByParam(c)
	if !ok {
		return
	}
	positions := trading.GetPositions(c.Request.Context(), acc.Client, 0, "")
	c.JSON(http.StatusOK, gin.H{"remark": acc.Config.Remark, "positions": positions})
}

func (s *Server) handleAccountSummary(c *gin.Context) {
	acc, ok := s.accountByParam(c)
	if !ok {
		return
	}
	summary := trading.GetPositionsSummary(c.Request.Context(), acc.Client)
	c.JSON(http.StatusOK, gin.H{
		"remark":      acc.Config.Remark,
		"total_value": summary.TotalValue,
		"total_cost":  summary.TotalCost,
		"total_pnl":   summary.TotalPnL,
		"pnl_percent": summary.PnLPercent,
		"count":       summary.Count,
	})
}

func (s *Server) handleRunsList(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.journal.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunResults(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not configured"})
		return
	}
	results, err := s.journal.RunResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
