package service

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"buildbuddy-admin/internal/dto"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/pkg/constants"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type LDAPService interface {
	// Authenticate 校验账号密码, 返回的 UserInfo 不含本地 ID
	Authenticate(username, password string) (*dto.UserInfo, error)
}

type ldapService struct {
	cfg *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) LDAPService {
	return &ldapService{cfg: cfg}
}

func (s *ldapService) Authenticate(username, password string) (*dto.UserInfo, error) {
	if !s.cfg.Enabled {
		return nil, pkgErrors.New(pkgErrors.CodeAuthError, "LDAP认证未启用")
	}
	// 空密码会变成匿名绑定
	if password == "" {
		return nil, pkgErrors.ErrInvalidCredentials
	}

	conn, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	entry, err := s.searchUser(conn, username)
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, pkgErrors.ErrInvalidCredentials
	}

	return &dto.UserInfo{
		Username:    username,
		Email:       entry.GetAttributeValue(s.cfg.Attributes.Email),
		DisplayName: entry.GetAttributeValue(s.cfg.Attributes.DisplayName),
		AuthType:    constants.AuthTypeLDAP,
	}, nil
}

func (s *ldapService) connect() (*ldap.Conn, error) {
	address := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	scheme := "ldap"
	if s.cfg.UseSSL {
		scheme = "ldaps"
	}

	conn, err := ldap.DialURL(fmt.Sprintf("%s://%s", scheme, address))
	if err != nil {
		return nil, pkgErrors.WithCause(pkgErrors.ErrLDAPConnectionFailed, err)
	}

	// 使用管理员账号绑定
	if err := conn.Bind(s.cfg.BindDN, s.cfg.BindPassword); err != nil {
		conn.Close()
		return nil, pkgErrors.Wrap(pkgErrors.CodeAuthError, "LDAP绑定失败", err)
	}
	return conn, nil
}

func (s *ldapService) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	filter := fmt.Sprintf(s.cfg.UserFilter, ldap.EscapeFilter(username))
	req := ldap.NewSearchRequest(
		s.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		[]string{s.cfg.Attributes.Username, s.cfg.Attributes.Email, s.cfg.Attributes.DisplayName},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeAuthError, "LDAP搜索失败", err)
	}
	switch len(result.Entries) {
	case 0:
		return nil, pkgErrors.ErrInvalidCredentials
	case 1:
		return result.Entries[0], nil
	default:
		return nil, pkgErrors.New(pkgErrors.CodeAuthError, "找到多个匹配的用户")
	}
}
