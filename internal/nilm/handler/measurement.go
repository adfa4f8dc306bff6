package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/biz"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// MeasurementHandler serves the metrics and raw data endpoints.
type MeasurementHandler struct {
	svc *biz.MeasurementService
}

// NewMeasurementHandler creates a new MeasurementHandler.
func NewMeasurementHandler(svc *biz.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{svc: svc}
}

// Summary returns the aggregate of the readings around the latest timestamp.
//
//	@Summary	Current power summary
//	@Tags		metrics
//	@Produce	json
//	@Success	200	{object}	model.MetricsSummary
//	@Router		/metrics/summary [get]
func (h *MeasurementHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, summary)
}

// Recent returns the latest readings across all clusters.
//
//	@Summary	Recent readings
//	@Tags		metrics
//	@Produce	json
//	@Param		limit	query	int	false	"1..100"	default(10)
//	@Router		/metrics/recent [get]
func (h *MeasurementHandler) Recent(c *gin.Context) {
	h.recent(c, biz.DefaultRecentLimit)
}

// ByCluster returns the latest readings of one cluster.
//
//	@Summary	Recent readings of a cluster
//	@Tags		metrics
//	@Produce	json
//	@Param		cluster_id	path	int	true	"cluster"
//	@Param		limit		query	int	false	"1..100"	default(10)
//	@Router		/metrics/by-cluster/{cluster_id} [get]
func (h *MeasurementHandler) ByCluster(c *gin.Context) {
	cluster, err := clusterParam(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	limit, err := queryLimit(c, biz.DefaultRecentLimit)
	if err != nil {
		response.Fail(c, err)
		return
	}

	rows, err := h.svc.ByCluster(c.Request.Context(), cluster, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, rows)
}

// ListData returns the latest raw readings.
//
//	@Summary	Raw readings
//	@Tags		data
//	@Produce	json
//	@Param		limit	query	int	false	"1..100"	default(5)
//	@Router		/data [get]
func (h *MeasurementHandler) ListData(c *gin.Context) {
	h.recent(c, biz.DefaultDataLimit)
}

func (h *MeasurementHandler) recent(c *gin.Context, def int) {
	limit, err := queryLimit(c, def)
	if err != nil {
		response.Fail(c, err)
		return
	}

	rows, err := h.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, rows)
}

// CreateDataRequest is the request body of POST /data.
type CreateDataRequest struct {
	// Timestamp defaults to the server time when omitted
	Timestamp     *time.Time `json:"timestamp"`
	Voltage       float64    `json:"voltage" binding:"finite,gte=0"`
	Current       float64    `json:"current" binding:"finite,gte=0"`
	RealPower     float64    `json:"real_power" binding:"finite"`
	ReactivePower float64    `json:"reactive_power" binding:"finite"`
	ApparentPower float64    `json:"apparent_power" binding:"finite,gte=0"`
	PowerFactor   float64    `json:"power_factor" binding:"finite,gte=-1,lte=1"`
	Frequency     *float64   `json:"frequency" binding:"omitempty,finite,gt=0"`
	THD           float64    `json:"thd" binding:"finite,gte=0"`
	RealPowerWatt float64    `json:"real_power_watt" binding:"finite"`
	Cluster       *int       `json:"cluster" binding:"required,gte=0"`
	DeviceState   string     `json:"device_state" binding:"max=128"`
}

// CreateData stores one reading.
//
//	@Summary	Insert a reading
//	@Tags		data
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateDataRequest	true	"reading"
//	@Success	200		{object}	model.ElectricalData
//	@Router		/data [post]
func (h *MeasurementHandler) CreateData(c *gin.Context) {
	var req CreateDataRequest
	if err := bindJSON(c, &req); err != nil {
		response.Fail(c, err)
		return
	}

	data := &model.ElectricalData{
		Voltage:       req.Voltage,
		Current:       req.Current,
		RealPower:     req.RealPower,
		ReactivePower: req.ReactivePower,
		ApparentPower: req.ApparentPower,
		PowerFactor:   req.PowerFactor,
		Frequency:     req.Frequency,
		THD:           req.THD,
		RealPowerWatt: req.RealPowerWatt,
		Cluster:       *req.Cluster,
		DeviceState:   req.DeviceState,
	}
	if req.Timestamp != nil {
		data.Timestamp = *req.Timestamp
	}

	if err := h.svc.Create(c.Request.Context(), data); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, data)
}
