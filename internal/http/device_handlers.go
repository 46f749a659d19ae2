package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"signage-monitor/internal/query"
	"signage-monitor/internal/repository"
)

// Refresher is the manual-refresh capability handed to the read path.
type Refresher interface {
	RefreshClient(ctx context.Context, client string) error
}

type DeviceHandler struct {
	query    *query.Service
	pipeline Refresher
	clients  repository.ClientsRepository
	logger   *zap.Logger
}

func NewDeviceHandler(querySvc *query.Service, pipeline Refresher, clients repository.ClientsRepository, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		query:    querySvc,
		pipeline: pipeline,
		clients:  clients,
		logger:   logger,
	}
}

// ListDevices GET /api/v1/devices?client=&search=&status=&sort_field=&sort_direction=&page=&size=
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	client := q.Get("client")
	if client == "" {
		writeJSON(w, http.StatusBadRequest, Fail("client is required"))
		return
	}

	page, err := h.query.Devices(r.Context(), query.Params{
		Client:        client,
		Search:        q.Get("search"),
		Status:        q.Get("status"),
		SortField:     q.Get("sort_field"),
		SortDirection: q.Get("sort_direction"),
		Page:          parseInt(q.Get("page"), 1),
		Size:          parseInt(q.Get("size"), 0),
	})
	if err != nil {
		h.logger.Error("Device list query failed", zap.String("client", client), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load devices"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(page))
}

// Summary GET /api/v1/devices/summary
func (h *DeviceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		h.logger.Error("Client list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list clients"))
		return
	}

	summaries, err := h.query.Summary(r.Context(), clients)
	if err != nil {
		h.logger.Error("Summary query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load summary"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(summaries))
}

// Export GET /api/v1/devices/export — same query params as ListDevices, but
// streams the full filtered set as an Excel workbook.
func (h *DeviceHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	client := q.Get("client")
	if client == "" {
		writeJSON(w, http.StatusBadRequest, Fail("client is required"))
		return
	}

	page, err := h.query.Devices(r.Context(), query.Params{
		Client:        client,
		Search:        q.Get("search"),
		Status:        q.Get("status"),
		SortField:     q.Get("sort_field"),
		SortDirection: q.Get("sort_direction"),
		Page:          1,
		Size:          1 << 20, // whole result set on one page
	})
	if err != nil {
		h.logger.Error("Device export query failed", zap.String("client", client), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load devices"))
		return
	}

	data, err := GenerateDeviceExport(page.Items)
	if err != nil {
		h.logger.Error("Device export generation failed", zap.String("client", client), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	filename := fmt.Sprintf("devices-%s-%s.xlsx", client, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	_, _ = w.Write(data)
}

// Refresh POST /api/v1/devices/refresh?client=x — manual on-demand refresh
// through the same pipeline the scheduler drives.
func (h *DeviceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	client := r.URL.Query().Get("client")
	if client == "" {
		writeJSON(w, http.StatusBadRequest, Fail("client is required"))
		return
	}

	if err := h.pipeline.RefreshClient(r.Context(), client); err != nil {
		h.logger.Error("Manual refresh failed", zap.String("client", client), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, Fail("refresh failed"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"client": client}))
}

// LastRefresh GET /api/v1/devices/last-refresh?client=x
func (h *DeviceHandler) LastRefresh(w http.ResponseWriter, r *http.Request) {
	client := r.URL.Query().Get("client")
	if client == "" {
		writeJSON(w, http.StatusBadRequest, Fail("client is required"))
		return
	}

	last, err := h.query.LastRefreshed(r.Context(), client)
	if err != nil {
		h.logger.Error("Last refresh lookup failed", zap.String("client", client), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load last refresh"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(last))
}

// ListClients GET /api/v1/clients
func (h *DeviceHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.ListClients(r.Context())
	if err != nil {
		h.logger.Error("Client list failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list clients"))
		return
	}
	if clients == nil {
		clients = []string{}
	}
	writeJSON(w, http.StatusOK, Ok(clients))
}
