package service

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/model"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/pkg/crypto"
	"buildbuddy-admin/internal/pkg/jwt"
	"buildbuddy-admin/internal/repository"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	VerifyToken(token string) (*dto.UserInfo, error)
}

type authService struct {
	cfg         *config.AuthConfig
	userRepo    repository.UserRepository
	ldapService LDAPService
	logger      *zap.Logger
}

func NewAuthService(
	cfg *config.AuthConfig,
	userRepo repository.UserRepository,
	ldapService LDAPService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:         cfg,
		userRepo:    userRepo,
		ldapService: ldapService,
		logger:      logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	var (
		user *model.User
		err  error
	)

	switch req.AuthType {
	case constants.AuthTypeLDAP:
		if !s.cfg.LDAP.Enabled {
			return nil, pkgErrors.New(pkgErrors.CodeAuthError, "LDAP认证未启用")
		}
		info, err := s.ldapService.Authenticate(req.Username, req.Password)
		if err != nil {
			return nil, err
		}
		if user, err = s.syncLDAPUser(ctx, info); err != nil {
			return nil, err
		}

	case constants.AuthTypeLocal:
		if !s.cfg.Local.Enabled {
			return nil, pkgErrors.New(pkgErrors.CodeAuthError, "本地认证未启用")
		}
		if user, err = s.authenticateLocal(ctx, req.Username, req.Password); err != nil {
			return nil, err
		}

	default:
		return nil, pkgErrors.New(pkgErrors.CodeBadRequest, "不支持的认证类型")
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return s.issue(toUserInfo(user))
}

func (s *authService) authenticateLocal(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username, constants.AuthTypeLocal)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return nil, pkgErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Status != constants.StatusEnabled {
		return nil, pkgErrors.ErrUserDisabled
	}
	if !crypto.CheckPassword(password, user.Password) {
		return nil, pkgErrors.ErrInvalidCredentials
	}
	return user, nil
}

// syncLDAPUser 首次登录时创建本地用户
func (s *authService) syncLDAPUser(ctx context.Context, info *dto.UserInfo) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, info.Username, constants.AuthTypeLDAP)
	if err == nil {
		if user.Status != constants.StatusEnabled {
			return nil, pkgErrors.ErrUserDisabled
		}
		return user, nil
	}
	if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return nil, err
	}

	user = &model.User{
		AuthProvider: constants.AuthTypeLDAP,
		Username:     info.Username,
		DisplayName:  lo.EmptyableToPtr(info.DisplayName),
		Email:        lo.EmptyableToPtr(strings.ToLower(info.Email)),
		BaseStatus:   model.BaseStatus{Status: constants.StatusEnabled},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("同步LDAP用户", zap.String("username", user.Username), zap.Int64("user_id", user.ID))
	return user, nil
}

// Register 本地注册, 注册后没有任何组织, 由前端引导创建
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	if !s.cfg.Local.Enabled || !s.cfg.Local.AllowRegister {
		return nil, pkgErrors.New(pkgErrors.CodeForbidden, "未开放注册")
	}

	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if _, err := s.userRepo.FindByUsername(ctx, username, constants.AuthTypeLocal); err == nil {
		return nil, pkgErrors.New(pkgErrors.CodeConflict, "用户名已存在")
	} else if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, pkgErrors.New(pkgErrors.CodeConflict, "邮箱已被注册")
	} else if !errors.Is(err, pkgErrors.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "密码加密失败", err)
	}
	user := &model.User{
		AuthProvider: constants.AuthTypeLocal,
		Username:     username,
		Password:     hash,
		Email:        &email,
		DisplayName:  req.DisplayName,
		BaseStatus:   model.BaseStatus{Status: constants.StatusEnabled},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("注册用户", zap.String("username", username), zap.Int64("user_id", user.ID))
	return s.issue(toUserInfo(user))
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	claims, err := jwt.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != constants.JWTTypeRefresh {
		return nil, pkgErrors.New(pkgErrors.CodeUnauthorized, "无效的RefreshToken")
	}

	// 用户被禁用或删除后不再续期
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pkgErrors.ErrRecordNotFound) {
			return nil, pkgErrors.ErrInvalidToken
		}
		return nil, err
	}
	if user.Status != constants.StatusEnabled {
		return nil, pkgErrors.ErrUserDisabled
	}
	return s.issue(toUserInfo(user))
}

func (s *authService) VerifyToken(token string) (*dto.UserInfo, error) {
	claims, err := jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	id := claims.Identity()
	return &dto.UserInfo{
		ID:          id.UserID,
		Username:    id.Username,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		AuthType:    id.AuthType,
	}, nil
}

func (s *authService) issue(info *dto.UserInfo) (*dto.LoginResponse, error) {
	id := jwt.Identity{
		UserID:      info.ID,
		Username:    info.Username,
		Email:       info.Email,
		DisplayName: info.DisplayName,
		AuthType:    info.AuthType,
	}
	accessToken, err := jwt.GenerateAccessToken(id)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成AccessToken失败", err)
	}
	refreshToken, err := jwt.GenerateRefreshToken(id)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "生成RefreshToken失败", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.JWT.AccessTokenExpire,
		User:         info,
	}, nil
}
