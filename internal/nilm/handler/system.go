package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/nilm-chat/internal/nilm/biz"
	"github.com/kart-io/nilm-chat/pkg/component/storage"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// readyTimeout bounds the storage checks of a readiness check.
const readyTimeout = 3 * time.Second

// StorageChecker reports the health of every registered backend.
type StorageChecker interface {
	HealthCheckAll(ctx context.Context) map[string]storage.HealthStatus
}

// SystemHandler serves the service info and health endpoints.
type SystemHandler struct {
	name    string
	version string
	docs    string
	storage StorageChecker
	loader  *biz.ModelLoader
}

// NewSystemHandler creates a new SystemHandler. docs is the documentation
// path advertised by the root endpoint, empty when swagger is disabled.
func NewSystemHandler(name, version, docs string, storage StorageChecker, loader *biz.ModelLoader) *SystemHandler {
	return &SystemHandler{
		name:    name,
		version: version,
		docs:    docs,
		storage: storage,
		loader:  loader,
	}
}

// Root returns the service description.
func (h *SystemHandler) Root(c *gin.Context) {
	response.OK(c, gin.H{
		"name":          h.name,
		"version":       h.version,
		"documentation": h.docs,
	})
}

// Health is the liveness check.
func (h *SystemHandler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok"})
}

type componentStatus struct {
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ready is the readiness check. Storage backends must answer a ping. The
// model is loaded lazily, so its state is reported without gating readiness.
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	ready := true
	components := make(map[string]componentStatus)
	if h.storage != nil {
		for name, st := range h.storage.HealthCheckAll(ctx) {
			cs := componentStatus{Healthy: st.Healthy, Latency: st.Latency.String()}
			if st.Error != nil {
				cs.Error = st.Error.Error()
			}
			components[name] = cs
			ready = ready && st.Healthy
		}
	}

	body := gin.H{"components": components}
	if h.loader != nil {
		body["model"] = gin.H{
			"state":     h.loader.State(),
			"loaded_at": h.loader.LoadedAt(),
		}
	}

	if !ready {
		body["status"] = "not_ready"
		response.FailWithData(c, errors.ErrServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	response.OK(c, body)
}
