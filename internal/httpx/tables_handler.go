package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-table-orders/internal/apperr"
	"github.com/ariefcatur/go-table-orders/internal/floor"
	"github.com/ariefcatur/go-table-orders/internal/orders"
	"github.com/ariefcatur/go-table-orders/internal/stock"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HeaderUserID names the acting server; DefaultActor is used when absent.
const HeaderUserID = "X-User-Id"

// Floor is the part of floor.Service the handlers call.
type Floor interface {
	AddItem(ctx context.Context, in floor.AddItemInput) (floor.AddItemResult, error)
	RemoveItem(ctx context.Context, itemID, actorID int64) (floor.RemoveItemResult, error)
	Pay(ctx context.Context, in floor.PayInput) (orders.TableView, error)
	Cancel(ctx context.Context, tableID int64) (orders.TableView, error)
	RecordStockMovement(ctx context.Context, e stock.Entry) (stock.Movement, error)

	CreateTable(ctx context.Context, in floor.TableInput) (orders.Table, error)
	UpdateTable(ctx context.Context, id int64, in floor.TablePatch) (orders.Table, error)
	DeleteTable(ctx context.Context, id int64) error
	ListTables(ctx context.Context) ([]orders.TableView, error)
	GetTable(ctx context.Context, id int64) (orders.TableView, error)
	GetTableBySlug(ctx context.Context, slug string) (orders.TableView, error)
	ListMovements(ctx context.Context, productID int64, limit int) ([]stock.Movement, error)
	AuditStock(ctx context.Context, productID int64) (stock.AuditReport, error)
}

var _ Floor = (*floor.Service)(nil)

type TablesHandler struct {
	Floor        Floor
	DefaultActor int64
	Log          *zap.Logger
}

func (h *TablesHandler) Register(r chi.Router) {
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", h.listTables)
		r.Post("/", h.createTable)
		r.Get("/slug/{slug}", h.getTableBySlug)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getTable)
			r.Put("/", h.updateTable)
			r.Delete("/", h.deleteTable)
			r.Post("/items", h.addItem)
			r.Delete("/items/{itemID}", h.removeItem)
			r.Post("/payment", h.pay)
			r.Post("/cancel", h.cancel)
		})
	})
	r.Route("/stock", func(r chi.Router) {
		r.Get("/movements", h.listMovements)
		r.Post("/movements", h.recordMovement)
		r.Get("/products/{id}/audit", h.audit)
	})
}

func (h *TablesHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *TablesHandler) fail(w http.ResponseWriter, err error) { writeError(w, h.log(), err) }

func (h *TablesHandler) actor(r *http.Request, fromBody int64) int64 {
	if fromBody > 0 {
		return fromBody
	}
	if id, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64); err == nil && id > 0 {
		return id
	}
	return h.DefaultActor
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("httpx", "%s must be a positive integer", name)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("httpx", "invalid json: %v", err)
	}
	return nil
}

type addItemReq struct {
	ProductID   int64            `json:"produtoId"`
	Qty         int              `json:"quantidade"`
	UnitPrice   *decimal.Decimal `json:"precoUnitario"`
	UserID      int64            `json:"usuarioId"`
	OrderNumber int64            `json:"pedido"`
}

func (h *TablesHandler) addItem(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req addItemReq
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.Floor.AddItem(r.Context(), floor.AddItemInput{
		TableID:         tableID,
		ProductID:       req.ProductID,
		Qty:             req.Qty,
		UnitPrice:       req.UnitPrice,
		ActorID:         h.actor(r, req.UserID),
		SuggestedNumber: req.OrderNumber,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *TablesHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		h.fail(w, err)
		return
	}
	res, err := h.Floor.RemoveItem(r.Context(), itemID, h.actor(r, 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type paidLineReq struct {
	ProductID int64 `json:"produtoId"`
	Qty       int   `json:"quantidade"`
}

type payReq struct {
	Method   string           `json:"metodo"`
	Total    decimal.Decimal  `json:"total"`
	Received *decimal.Decimal `json:"valorRecebido"`
	Discount decimal.Decimal  `json:"desconto"`
	Items    []paidLineReq    `json:"itens"`
	UserID   int64            `json:"usuarioId"`
	Notes    string           `json:"observacoes"`
}

func (h *TablesHandler) pay(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req payReq
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	method, err := orders.ParsePaymentMethod(req.Method)
	if err != nil {
		h.fail(w, apperr.Invalid("httpx.pay", "%v", err))
		return
	}
	lines := make([]floor.PaidLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, floor.PaidLine{ProductID: it.ProductID, Qty: it.Qty})
	}
	view, err := h.Floor.Pay(r.Context(), floor.PayInput{
		TableID:  tableID,
		Method:   method,
		Lines:    lines,
		Total:    req.Total,
		Received: req.Received,
		Discount: req.Discount,
		ActorID:  h.actor(r, req.UserID),
		Notes:    req.Notes,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TablesHandler) cancel(w http.ResponseWriter, r *http.Request) {
	tableID, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	view, err := h.Floor.Cancel(r.Context(), tableID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TablesHandler) listTables(w http.ResponseWriter, r *http.Request) {
	views, err := h.Floor.ListTables(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TablesHandler) createTable(w http.ResponseWriter, r *http.Request) {
	var in floor.TableInput
	if err := decode(r, &in); err != nil {
		h.fail(w, err)
		return
	}
	t, err := h.Floor.CreateTable(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tableJSON(t))
}

func (h *TablesHandler) getTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	view, err := h.Floor.GetTable(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TablesHandler) getTableBySlug(w http.ResponseWriter, r *http.Request) {
	view, err := h.Floor.GetTableBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TablesHandler) updateTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	var patch floor.TablePatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, err)
		return
	}
	t, err := h.Floor.UpdateTable(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableJSON(t))
}

func (h *TablesHandler) deleteTable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Floor.DeleteTable(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tableJSON(t orders.Table) map[string]any {
	return map[string]any{
		"id":             t.ID,
		"nome":           t.Name,
		"slug":           t.Slug,
		"status":         t.Status,
		"capacidade":     t.Capacity,
		"observacoes":    t.Notes,
		"responsavel_id": t.ResponsibleID,
		"created_at":     t.CreatedAt,
		"updated_at":     t.UpdatedAt,
	}
}
