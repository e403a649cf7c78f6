package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Search 用户搜索
// @Summary 按用户名或邮箱搜索用户
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Param keyword query string false "关键字"
// @Param limit query int false "条数"
// @Success 200 {object} utils.Response{data=[]dto.UserSimpleResponse}
// @Router /api/v1/users/search [get]
func (h *UserHandler) Search(c *gin.Context) {
	var req dto.UserSearchQuery
	if !bindQuery(c, &req) {
		return
	}

	users, err := h.service.Search(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, users)
}

// ListRoles 获取组织角色列表
func (h *UserHandler) ListRoles(c *gin.Context) {
	utils.Success(c, h.service.ListRoles())
}
