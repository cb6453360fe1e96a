package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/internal/resputil"
)

// UintParam reads a positive numeric path parameter and answers 400 otherwise.
func UintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		resputil.BadRequestError(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}
