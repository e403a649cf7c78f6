package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"buildbuddy-admin/pkg/utils"
)

// paramID 解析路径中的ID, 失败时已写入响应
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.ErrorWithDetail(c, http.StatusBadRequest, "无效的ID", name+"="+c.Param(name))
		return 0, false
	}
	return id, true
}

// bindJSON 绑定请求体, 失败时已写入响应
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequest(c, err)
		return false
	}
	return true
}

// bindQuery 绑定查询参数, 失败时已写入响应
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		utils.BadRequest(c, err)
		return false
	}
	return true
}
