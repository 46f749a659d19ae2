package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library ServeMux; the API surface is small
// enough that a third-party router buys nothing.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterDeviceRoutes wires the device dashboard API.
func (r *Router) RegisterDeviceRoutes(h *DeviceHandler) {
	get := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			next(w, req)
		}
	}

	r.Handle("/api/v1/devices", get(h.ListDevices))
	r.Handle("/api/v1/devices/summary", get(h.Summary))
	r.Handle("/api/v1/devices/export", get(h.Export))
	r.Handle("/api/v1/devices/last-refresh", get(h.LastRefresh))
	r.Handle("/api/v1/clients", get(h.ListClients))

	r.Handle("/api/v1/devices/refresh", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Refresh(w, req)
	})
}
