package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/analysis"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/db"
	"github.com/jfslima/licita-tracker-sibal-view-sub001/internal/models"
)

// NoticeStore is the read side the HTTP surface needs besides the tools.
type NoticeStore interface {
	GetNotice(ctx context.Context, id uuid.UUID) (*models.Notice, error)
	ListNotices(ctx context.Context, params db.ListParams) (*db.ListResult, error)
	GetDocumentResult(ctx context.Context, id uuid.UUID) (*models.DocumentProcessingResult, error)
	FollowNotice(ctx context.Context, companyID string, noticeID uuid.UUID) error
	GetStats(ctx context.Context) (*db.NoticeStats, error)
}

type Server struct {
	Toolbox *analysis.Toolbox
	Store   NoticeStore
	Echo    *echo.Echo
}

func NewServer(toolbox *analysis.Toolbox, store NoticeStore, corsOrigins []string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:4200"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{Toolbox: toolbox, Store: store, Echo: e}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/tools", s.handleListTools)
	api.POST("/tools/:name", s.handleInvokeTool)
	api.GET("/stats", s.handleGetStats)
	api.GET("/notices", s.handleListNotices)
	api.GET("/notices/:id", s.handleGetNotice)
	api.GET("/documents/:id", s.handleGetDocument)
	api.POST("/companies/:company_id/followed", s.handleFollowNotice)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Toolbox.Tools())
}

func (s *Server) handleInvokeTool(c echo.Context) error {
	name := c.Param("name")

	args, err := decodeArgs(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := s.Toolbox.Invoke(c.Request().Context(), name, args)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
			log.Printf("[API] Tool %s failed: %v", name, err)
		}
		body := map[string]any{"error": err.Error()}
		if result != nil {
			body["result"] = result
		}
		return c.JSON(status, body)
	}

	return c.JSON(http.StatusOK, result)
}

// decodeArgs reads the tool arguments. An empty body means no arguments.
func decodeArgs(body io.Reader) (map[string]any, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, errors.New("invalid JSON body")
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return map[string]any{}, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, errors.New("request body must be a JSON object")
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	return args, nil
}

// statusForError maps the analysis error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var (
		verr    *analysis.ValidationError
		unsup   *analysis.UnsupportedTypeError
		parse   *analysis.ParseError
		dlError *analysis.DownloadError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNotFound), errors.Is(err, models.ErrNotFound), errors.Is(err, analysis.ErrUnknownTool):
		return http.StatusNotFound
	case errors.As(err, &unsup):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &parse):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dlError):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		log.Printf("[API] Stats failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListNotices(c echo.Context) error {
	params := db.ListParams{
		Query:     c.QueryParam("q"),
		Organ:     c.QueryParam("organ"),
		RiskLevel: c.QueryParam("risk_level"),
		Limit:     20,
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		params.Offset = o
	}
	if v, err := strconv.ParseBool(c.QueryParam("unscored")); err == nil {
		params.Unscored = v
	}

	result, err := s.Store.ListNotices(c.Request().Context(), params)
	if err != nil {
		log.Printf("[API] List notices failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list notices"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetNotice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid notice id"})
	}

	notice, err := s.Store.GetNotice(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "notice not found"})
		}
		log.Printf("[API] Get notice %s failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load notice"})
	}
	return c.JSON(http.StatusOK, notice)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid document id"})
	}

	doc, err := s.Store.GetDocumentResult(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
		}
		log.Printf("[API] Get document %s failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load document"})
	}
	return c.JSON(http.StatusOK, doc)
}

type followRequest struct {
	NoticeID string `json:"notice_id"`
}

func (s *Server) handleFollowNotice(c echo.Context) error {
	companyID := strings.TrimSpace(c.Param("company_id"))
	var req followRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}
	noticeID, err := uuid.Parse(req.NoticeID)
	if err != nil || companyID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "company_id and a valid notice_id are required"})
	}

	ctx := c.Request().Context()
	if _, err := s.Store.GetNotice(ctx, noticeID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "notice not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load notice"})
	}
	if err := s.Store.FollowNotice(ctx, companyID, noticeID); err != nil {
		log.Printf("[API] Follow notice %s for %s failed: %v", noticeID, companyID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to follow notice"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "followed"})
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
