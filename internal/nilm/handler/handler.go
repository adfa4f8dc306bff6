// Package handler provides the HTTP handlers of the NILM chat service.
package handler

import (
	stderrors "errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/validator"
)

// bindJSON decodes and validates the request body. Validation failures carry
// the translated field messages.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs *validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			return errors.ErrInvalidParam.WithMessage(verrs.Error()).WithCause(verrs)
		}
		return errors.ErrInvalidParam.WithMessage("invalid request body").WithCause(err)
	}
	return nil
}

// queryLimit reads the limit query parameter, falling back to def when absent.
func queryLimit(c *gin.Context, def int) (int, error) {
	raw, ok := c.GetQuery("limit")
	if !ok || raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ErrInvalidLimit.WithMessagef("limit must be an integer, got %q", raw)
	}
	return limit, nil
}

func clusterParam(c *gin.Context) (int, error) {
	raw := c.Param("cluster_id")
	cluster, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ErrInvalidCluster.WithMessagef("cluster_id must be an integer, got %q", raw)
	}
	return cluster, nil
}
