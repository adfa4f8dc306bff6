package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/nilm-chat/internal/nilm/biz"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// DeviceHandler serves the device listing endpoints.
type DeviceHandler struct {
	svc *biz.DeviceService
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(svc *biz.DeviceService) *DeviceHandler {
	return &DeviceHandler{svc: svc}
}

// List returns one entry per cluster.
//
//	@Summary	List devices
//	@Tags		devices
//	@Produce	json
//	@Success	200	{array}	model.DeviceInfo
//	@Router		/devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, devices)
}

// Get returns the device of one cluster.
//
//	@Summary	Get a device
//	@Tags		devices
//	@Produce	json
//	@Param		cluster_id	path		int	true	"cluster"
//	@Success	200			{object}	model.DeviceInfo
//	@Router		/devices/{cluster_id} [get]
func (h *DeviceHandler) Get(c *gin.Context) {
	cluster, err := clusterParam(c)
	if err != nil {
		response.Fail(c, err)
		return
	}

	device, err := h.svc.Get(c.Request.Context(), cluster)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, device)
}
