package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/sse"
	"github.com/felixgeelhaar/buraco/pkg/application"
)

// MaxPhotoBytes bounds a single upload.
const MaxPhotoBytes = 20 << 20

type SessionHandler struct {
	log      *logger.Logger
	intake   *application.IntakeService
	dispatch *application.DispatchService
	events   *sse.Broker
}

func NewSessionHandler(log *logger.Logger, intake *application.IntakeService, dispatch *application.DispatchService, events *sse.Broker) *SessionHandler {
	return &SessionHandler{
		log:      log.With("handler", "SessionHandler"),
		intake:   intake,
		dispatch: dispatch,
		events:   events,
	}
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.intake.StartSession(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	sess, err := h.intake.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, sess)
}

// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.intake.EndSession(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/sessions/:id/advance
func (h *SessionHandler) Advance(c *gin.Context) {
	sess, err := h.intake.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, sess)
}

// POST /api/sessions/:id/retreat
func (h *SessionHandler) Retreat(c *gin.Context) {
	sess, err := h.intake.Retreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, sess)
}

// POST /api/sessions/:id/restart
func (h *SessionHandler) Restart(c *gin.Context) {
	sess, err := h.intake.RestartAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, sess)
}

type addressRequest struct {
	CEP    string `json:"cep" binding:"required"`
	Number string `json:"number"`
}

// POST /api/sessions/:id/address
func (h *SessionHandler) SetAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.intake.SetAddress(c.Request.Context(), c.Param("id"), req.CEP, req.Number)
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, res)
}

// POST /api/sessions/:id/photo
// Multipart field "photo"; "override=true" skips the confirmation step for
// photos that fail the quality gate. Without it such a photo is parked
// and 202 is returned.
func (h *SessionHandler) SubmitPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("multipart field photo is required: %w", err))
		return
	}
	if fh.Size > MaxPhotoBytes {
		RespondError(c, http.StatusRequestEntityTooLarge, "photo_too_large", fmt.Errorf("photo exceeds %d bytes", MaxPhotoBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxPhotoBytes))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	override := false
	if v := c.PostForm("override"); v != "" {
		if override, err = strconv.ParseBool(v); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("override: %w", err))
			return
		}
	}

	h.photoResponse(c, func() (application.PhotoResult, error) {
		return h.intake.SubmitPhoto(c.Request.Context(), c.Param("id"), data, override)
	})
}

type confirmRequest struct {
	Continue *bool `json:"continue" binding:"required"`
}

// POST /api/sessions/:id/photo/confirm
func (h *SessionHandler) ConfirmPhoto(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	h.photoResponse(c, func() (application.PhotoResult, error) {
		return h.intake.ConfirmPhoto(c.Request.Context(), c.Param("id"), *req.Continue)
	})
}

func (h *SessionHandler) photoResponse(c *gin.Context, run func() (application.PhotoResult, error)) {
	res, err := run()
	var gateErr *application.QualityGateError
	switch {
	case errors.As(err, &gateErr):
		c.JSON(http.StatusAccepted, res)
	case err != nil:
		respondErr(c, err)
	default:
		RespondOK(c, res)
	}
}

// GET /api/sessions/:id/report[?format=yaml]
func (h *SessionHandler) Report(c *gin.Context) {
	doc, err := h.intake.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if c.Query("format") == "yaml" {
		out, err := yaml.Marshal(doc)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Data(http.StatusOK, "application/yaml", out)
		return
	}
	RespondOK(c, doc)
}

// POST /api/sessions/:id/dispatch
func (h *SessionHandler) Dispatch(c *gin.Context) {
	doc, err := h.intake.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	deliveries, err := h.dispatch.Dispatch(c.Request.Context(), doc)
	if err != nil && deliveries == nil {
		respondErr(c, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"deliveries": deliveries})
}

// GET /api/sessions/:id/events
func (h *SessionHandler) Events(c *gin.Context) {
	if _, err := h.intake.Session(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	h.events.Stream(c.Writer, c.Request, c.Param("id"))
}

type LookupHandler struct {
	addresses application.AddressLookup
}

func NewLookupHandler(addresses application.AddressLookup) *LookupHandler {
	return &LookupHandler{addresses: addresses}
}

// GET /api/lookup/cep/:cep
func (h *LookupHandler) CEP(c *gin.Context) {
	addr, err := h.addresses.LookupAddress(c.Request.Context(), c.Param("cep"))
	if err != nil {
		respondErr(c, err)
		return
	}
	RespondOK(c, addr)
}

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
