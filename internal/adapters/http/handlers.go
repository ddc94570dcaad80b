package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relabs/matchcast/internal/app"
	"github.com/relabs/matchcast/internal/app/orch"
	"github.com/relabs/matchcast/internal/core"
	"github.com/relabs/matchcast/internal/domain"
	"github.com/relabs/matchcast/internal/metrics"
)

type Handlers struct {
	Coord    *orch.Coordinator
	Reporter *app.StatusReporter
}

type produceRequest struct {
	Kind          domain.MediaKind     `json:"kind" binding:"required"`
	RTPParameters domain.RTPParameters `json:"rtpParameters"`
}

type consumeRequest struct {
	RTPCapabilities domain.RTPCapabilities `json:"rtpCapabilities"`
}

func (h *Handlers) Capabilities(c *gin.Context) {
	caps, err := h.Coord.Capabilities()
	if err != nil {
		h.fail(c, "capabilities", err)
		return
	}
	h.ok(c, "capabilities", caps)
}

func (h *Handlers) CreateTransport(c *gin.Context) {
	offer, err := h.Coord.CreateTransport(c.Request.Context(), matchParam(c))
	if err != nil {
		h.fail(c, "create_transport", err)
		return
	}
	h.ok(c, "create_transport", offer)
}

func (h *Handlers) ConnectTransport(c *gin.Context) {
	var dtls domain.DTLSParameters
	if err := c.ShouldBindJSON(&dtls); err != nil {
		h.badRequest(c, "connect_transport", err)
		return
	}
	tid := domain.TransportID(c.Param("transport"))
	if err := h.Coord.ConnectTransport(c.Request.Context(), matchParam(c), tid, dtls); err != nil {
		h.fail(c, "connect_transport", err)
		return
	}
	h.ok(c, "connect_transport", gin.H{"connected": true})
}

func (h *Handlers) CloseTransport(c *gin.Context) {
	tid := domain.TransportID(c.Param("transport"))
	if err := h.Coord.CloseTransport(c.Request.Context(), matchParam(c), tid); err != nil {
		h.fail(c, "close_transport", err)
		return
	}
	h.ok(c, "close_transport", gin.H{"closed": true})
}

func (h *Handlers) Produce(c *gin.Context) {
	var req produceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "produce", err)
		return
	}
	if !req.Kind.Valid() {
		h.badRequest(c, "produce", errors.New("kind must be audio or video"))
		return
	}
	tid := domain.TransportID(c.Param("transport"))
	id, err := h.Coord.Produce(c.Request.Context(), matchParam(c), tid, req.Kind, req.RTPParameters)
	if err != nil {
		h.fail(c, "produce", err)
		return
	}
	h.ok(c, "produce", gin.H{"producerId": id})
}

func (h *Handlers) CloseProducer(c *gin.Context) {
	pid := domain.ProducerID(c.Param("producer"))
	if err := h.Coord.CloseProducer(c.Request.Context(), matchParam(c), pid); err != nil {
		h.fail(c, "close_producer", err)
		return
	}
	h.ok(c, "close_producer", gin.H{"closed": true})
}

func (h *Handlers) Consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "consume", err)
		return
	}
	tid := domain.TransportID(c.Param("transport"))
	reply, err := h.Coord.Consume(c.Request.Context(), matchParam(c), tid, req.RTPCapabilities)
	if err != nil {
		h.fail(c, "consume", err)
		return
	}
	h.ok(c, "consume", reply)
}

func (h *Handlers) CloseConsumer(c *gin.Context) {
	cid := domain.ConsumerID(c.Param("consumer"))
	if err := h.Coord.CloseConsumer(c.Request.Context(), matchParam(c), cid); err != nil {
		h.fail(c, "close_consumer", err)
		return
	}
	h.ok(c, "close_consumer", gin.H{"closed": true})
}

func (h *Handlers) Status(c *gin.Context) {
	h.ok(c, "status", h.Reporter.Status(matchParam(c)))
}

func (h *Handlers) Cleanup(c *gin.Context) {
	if err := h.Coord.CleanupMatch(c.Request.Context(), matchParam(c)); err != nil {
		h.fail(c, "cleanup", err)
		return
	}
	h.ok(c, "cleanup", gin.H{"cleaned": true})
}

func matchParam(c *gin.Context) domain.MatchID {
	return domain.MatchID(c.Param("match"))
}

func (h *Handlers) ok(c *gin.Context, op string, body any) {
	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
	c.JSON(http.StatusOK, body)
}

func (h *Handlers) badRequest(c *gin.Context, op string, err error) {
	metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// fail maps the error taxonomy to status codes: caller errors are 4xx,
// engine failures 502 (retryable, no partial state left behind).
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrMatchIDMissing):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrTransportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrNoProducerAvailable):
		status = http.StatusConflict
	case errors.Is(err, core.ErrIncompatibleCapabilities):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrEngineUninitialized):
		status = http.StatusServiceUnavailable
	case core.IsEngineError(err):
		metrics.EngineErrorsTotal.WithLabelValues(op).Inc()
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
