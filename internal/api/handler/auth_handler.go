package handler

import (
	"github.com/gin-gonic/gin"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/service"
	"buildbuddy-admin/pkg/utils"
)

type AuthHandler struct {
	authService   service.AuthService
	accessService service.AccessService
}

func NewAuthHandler(authService service.AuthService, accessService service.AccessService) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		accessService: accessService,
	}
}

// Login 登录
// @Summary 用户登录
// @Description 支持LDAP和本地用户登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录请求"
// @Success 200 {object} utils.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// Register 注册
// @Summary 本地用户注册
// @Description 注册后没有任何组织, 需要先创建组织
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册请求"
// @Success 200 {object} utils.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// Refresh 刷新Token
// @Summary 刷新访问Token
// @Description 使用RefreshToken获取新的AccessToken
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "刷新Token请求"
// @Success 200 {object} utils.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// GetMe 获取当前用户及其组织
// @Summary 获取当前用户信息
// @Description 返回成员关系与生效组织, needs_setup 为 true 时需要先创建组织
// @Tags 认证
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=dto.MeResponse}
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	resp, err := h.accessService.Me(c.Request.Context())
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}

// Verify 验证Token
// @Summary 验证Token有效性
// @Description 验证Token是否有效(内部API)
// @Tags 认证
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=dto.UserInfo}
// @Router /api/v1/auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	// 由认证中间件已验证
	userInfo, exists := c.Get("user")
	if !exists {
		utils.ErrorWithCode(c, 401, "未登录")
		return
	}

	utils.Success(c, userInfo)
}

// SetActiveOrg 切换生效组织
// @Summary 切换生效组织
// @Description 仅保存为候选, 每次请求仍按当前成员关系校验
// @Tags 认证
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body dto.SetActiveOrgRequest true "组织"
// @Success 200 {object} utils.Response{data=dto.MembershipResponse}
// @Router /api/v1/auth/active-org [put]
func (h *AuthHandler) SetActiveOrg(c *gin.Context) {
	var req dto.SetActiveOrgRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.accessService.SetActiveOrg(c.Request.Context(), req.OrgID)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, resp)
}
