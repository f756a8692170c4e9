package httpx

import (
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/ariefcatur/go-table-orders/internal/stock"
)

type movementReq struct {
	ProductID int64  `json:"produtoId"`
	Kind      string `json:"tipo"`
	Source    string `json:"origem"`
	Qty       int    `json:"quantidade"`
	UserID    int64  `json:"usuarioId"`
	Note      string `json:"observacao"`
	OrderID   *int64 `json:"pedidoId"`
}

func (h *TablesHandler) recordMovement(w http.ResponseWriter, r *http.Request) {
	var req movementReq
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	kind, err := stock.ParseKind(req.Kind)
	if err != nil {
		h.fail(w, apperr.Invalid("httpx.recordMovement", "%v", err))
		return
	}
	source, err := stock.ParseSource(req.Source)
	if err != nil {
		h.fail(w, apperr.Invalid("httpx.recordMovement", "%v", err))
		return
	}
	m, err := h.Floor.RecordStockMovement(r.Context(), stock.Entry{
		ProductID: req.ProductID,
		Kind:      kind,
		Source:    source,
		Quantity:  req.Qty,
		ActorID:   h.actor(r, req.UserID),
		Note:      req.Note,
		OrderID:   req.OrderID,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *TablesHandler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var productID int64
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(w, apperr.Invalid("httpx.listMovements", "product_id must be an integer"))
			return
		}
		productID = id
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	ms, err := h.Floor.ListMovements(r.Context(), productID, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if ms == nil {
		ms = []stock.Movement{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (h *TablesHandler) audit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	rep, err := h.Floor.AuditStock(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
