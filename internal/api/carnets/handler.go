package carnets

import (
	"net/http"
	"strconv"

	"tontine-app/internal/app/http/middleware"
	"tontine-app/internal/app/ledger"
	"tontine-app/internal/domain/carnets"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	svc *ledger.Service
	log *zap.Logger
}

func NewHandler(svc *ledger.Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) carnetID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid carnet id"})
		return "", false
	}
	return id.String(), true
}

// GET /carnets?client_id=
func (h *Handler) List(c *gin.Context) {
	var clientID uint
	if raw := c.Query("client_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client_id"})
			return
		}
		clientID = uint(n)
	}

	out, err := h.svc.List(c.Request.Context(), middleware.SessionFromContext(c), clientID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if out == nil {
		out = []carnets.Carnet{}
	}
	c.JSON(http.StatusOK, out)
}

// POST /carnets
func (h *Handler) Create(c *gin.Context) {
	var in ledger.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.svc.Create(c.Request.Context(), middleware.SessionFromContext(c), in)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// GET /carnets/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.carnetID(c)
	if !ok {
		return
	}

	v, err := h.svc.Get(c.Request.Context(), middleware.SessionFromContext(c), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// POST /carnets/:id/mark-day
func (h *Handler) MarkDay(c *gin.Context) {
	id, ok := h.carnetID(c)
	if !ok {
		return
	}

	var cmd carnets.MarkDayCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.svc.MarkDay(c.Request.Context(), middleware.SessionFromContext(c), id, cmd)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /carnets/:id/transactions
func (h *Handler) Transactions(c *gin.Context) {
	id, ok := h.carnetID(c)
	if !ok {
		return
	}

	txs, err := h.svc.Transactions(c.Request.Context(), middleware.SessionFromContext(c), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if txs == nil {
		txs = []carnets.Transaction{}
	}
	c.JSON(http.StatusOK, txs)
}
