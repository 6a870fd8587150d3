package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"docchat/internal/domain"
)

// Pipeline is the server-facing subset of the orchestrator.
type Pipeline interface {
	Ingest(ctx context.Context, path, filename, session string) (int, error)
	Ask(ctx context.Context, question, session string, topK int) (domain.Answer, error)
	ClearSession(ctx context.Context, session string) (int, error)
	SessionInfo(ctx context.Context, session string) (bool, int, error)
}

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Pipeline Pipeline
	TopK     int
}

// New builds the echo instance with all routes registered. Every
// route except the health probe requires the shared-secret token.
func New(p Pipeline, token string, topK int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s: %v", code, req.Method, req.URL.Path, err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	h := &Handler{Pipeline: p, TopK: topK}
	g := e.Group("")
	g.Use(withToken(token))
	g.POST("/upload", h.upload)
	g.POST("/ask", h.ask)
	g.POST("/clear-session", h.clearSession)
	g.GET("/session/:id", h.session)
	return e
}

func withToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" || c.Request().Header.Get("X-API-Token") != token {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
			}
			return next(c)
		}
	}
}

func (h *Handler) upload(c echo.Context) error {
	session := c.FormValue("session_id")
	if session == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "docchat-upload-*.pdf")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tmpPath := tmp.Name()
	// The spooled upload is removed on success and failure alike.
	defer os.Remove(tmpPath)
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	n, err := h.Pipeline.Ingest(c.Request().Context(), tmpPath, fh.Filename, session)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"uploaded_chunks": n})
}

func (h *Handler) ask(c echo.Context) error {
	var req struct {
		Question string `json:"question"`
		Session  string `json:"session_id"`
		TopK     int    `json:"top_k"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" || req.Session == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question and session_id required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.TopK
	}
	ans, err := h.Pipeline.Ask(c.Request().Context(), req.Question, req.Session, topK)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ans)
}

func (h *Handler) clearSession(c echo.Context) error {
	var req struct {
		Session string `json:"session_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Session == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id required")
	}
	deleted, err := h.Pipeline.ClearSession(c.Request().Context(), req.Session)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

func (h *Handler) session(c echo.Context) error {
	id := c.Param("id")
	exists, count, err := h.Pipeline.SessionInfo(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"exists": exists, "vector_count": count})
}

// httpError maps pipeline errors onto status codes: user-input
// problems are 400s, remote collaborator failures are 502s, each with
// the underlying message.
func httpError(err error) *echo.HTTPError {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrMissingInput),
		errors.Is(err, domain.ErrEmptyDocument),
		errors.Is(err, domain.ErrNoContent),
		errors.Is(err, domain.ErrEmptyQuestion),
		errors.Is(err, domain.ErrNoValidInput):
		code = http.StatusBadRequest
	}
	return echo.NewHTTPError(code, err.Error())
}
