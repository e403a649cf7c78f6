package constants

// 组织成员角色
const (
	OrgRoleAdmin   = "org_admin"
	OrgRoleManager = "manager"
	OrgRoleWorker  = "worker"
)

// 项目参与方角色
const (
	ParticipantRoleOwner  = "owner"
	ParticipantRoleVendor = "vendor"
)

// 项目状态
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
)

// 任务状态
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// 工时状态
const (
	TimeLogStatusSubmitted = "submitted"
	TimeLogStatusApproved  = "approved"
	TimeLogStatusRejected  = "rejected"
)

// 工时/派工按公司过滤
const (
	CompanyFilterAll      = "all"
	CompanyFilterInternal = "internal"
	CompanyFilterVendors  = "vendors"
)

// 默认值
const (
	DefaultOrgName       = "Untitled"
	DefaultCurrency      = "EUR"
	DefaultAssignRole    = "worker"
	DefaultInviteExpDays = 14
	CopyTitlePrefix      = "Copy of "
)

// 认证类型
const (
	AuthTypeLDAP  = "ldap"
	AuthTypeLocal = "local"
)

// 状态
const (
	StatusEnabled  int8 = 1
	StatusDisabled int8 = 0
)

// JWT 相关
const (
	JWTTypeAccess  = "access"
	JWTTypeRefresh = "refresh"
)

// HTTP Header
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
	HeaderActiveOrg     = "X-Active-Org"
	HeaderRequestID     = "X-Request-ID"
)

// gin.Context 键
const (
	CtxKeyUser     = "user"
	CtxKeyUserID   = "user_id"
	CtxKeyUsername = "username"
	CtxKeyEmail    = "email"
	CtxKeyScope    = "scope"
)
