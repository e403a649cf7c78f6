package router

import (
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"buildbuddy-admin/internal/api/handler"
	"buildbuddy-admin/internal/api/middleware"
	"buildbuddy-admin/internal/pkg/auth"
	"buildbuddy-admin/internal/pkg/config"
	"buildbuddy-admin/internal/pkg/realtime"
	"buildbuddy-admin/internal/service"
)

// Setup 设置路由
func Setup(cfg *config.Config, svcs *service.Services, broker realtime.Broker, logger *zap.Logger) *gin.Engine {
	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(&cfg.CORS))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 初始化Handler
	authHandler := handler.NewAuthHandler(svcs.Auth, svcs.Access)
	userHandler := handler.NewUserHandler(svcs.User)
	orgHandler := handler.NewOrganizationHandler(svcs.Organization)
	projectHandler := handler.NewProjectHandler(svcs.Project)
	inviteHandler := handler.NewInviteHandler(svcs.Invite)
	planHandler := handler.NewPlanHandler(svcs.Phase, svcs.Task)
	checklistHandler := handler.NewChecklistHandler(svcs.Checklist)
	ledgerHandler := handler.NewLedgerHandler(svcs.Budget, svcs.TimeLog)
	shiftHandler := handler.NewShiftHandler(svcs.Shift)
	realtimeHandler := handler.NewRealtimeHandler(broker, svcs.Project,
		time.Duration(cfg.Realtime.Heartbeat)*time.Second, logger)

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证相关(无需token)
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		// 需要登录, 尚未加入组织也可以访问
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(), middleware.ScopeMiddleware(svcs.Resolver, svcs.Access))
		{
			authed.GET("/auth/me", authHandler.GetMe)
			authed.GET("/auth/verify", authHandler.Verify)
			authed.PUT("/auth/active-org", authHandler.SetActiveOrg)
			authed.GET("/users/search", userHandler.Search)
			authed.GET("/roles", userHandler.ListRoles)

			authed.POST("/organizations", orgHandler.Create)     // 创建组织(引导)
			authed.GET("/invites/mine", inviteHandler.ListMine)  // 发给我的邀请
			authed.POST("/invites/accept", inviteHandler.Accept) // 接受邀请
		}

		// 需要生效组织
		scoped := authed.Group("")
		scoped.Use(middleware.RequireActiveOrg())
		{
			// 组织管理
			orgGroup := scoped.Group("/organizations/:id")
			{
				orgGroup.GET("", orgHandler.Get)
				orgGroup.PUT("", orgHandler.Update)
				orgGroup.GET("/members", orgHandler.ListMembers)
				orgGroup.POST("/members", orgHandler.AddMember)
				orgGroup.PUT("/members/:user_id", orgHandler.UpdateMemberRole)
				orgGroup.DELETE("/members/:user_id", orgHandler.RemoveMember)
			}

			// 项目
			scoped.POST("/projects", PermWrapper(projectHandler.Create, auth.PermProjectCreate)) // 创建项目
			scoped.GET("/projects", projectHandler.List)                                         // 拥有或参与的项目
			projectGroup := scoped.Group("/projects/:id")
			{
				projectGroup.GET("", projectHandler.Get)
				projectGroup.PUT("", projectHandler.Update)
				projectGroup.DELETE("", projectHandler.Delete)

				// 参与方与派工
				projectGroup.GET("/participants", projectHandler.ListParticipants)
				projectGroup.POST("/vendors", projectHandler.AddVendor)
				projectGroup.DELETE("/vendors/:org_id", projectHandler.RemoveVendor)
				projectGroup.GET("/assignments", projectHandler.ListAssignments)

				// 邀请
				projectGroup.GET("/invites", inviteHandler.ListPending)
				projectGroup.POST("/invites", inviteHandler.Create)

				// 计划
				projectGroup.GET("/phases", planHandler.ListPhases)
				projectGroup.POST("/phases", planHandler.CreatePhase)
				projectGroup.GET("/tasks", planHandler.ListTasks)
				projectGroup.POST("/tasks", planHandler.CreateTask)

				// 预算(仅所属组织)
				projectGroup.GET("/budget", PermWrapper(ledgerHandler.ListBudget, auth.PermBudgetView))
				projectGroup.GET("/budget/summary", PermWrapper(ledgerHandler.BudgetSummary, auth.PermBudgetView))
				projectGroup.POST("/budget", PermWrapper(ledgerHandler.CreateBudgetLine, auth.PermBudgetManage))

				// 工时
				projectGroup.GET("/time-logs", ledgerHandler.ListTimeLogs)
				projectGroup.POST("/time-logs", ledgerHandler.CreateTimeLog)
			}

			scoped.DELETE("/assignments/:id", projectHandler.RemoveAssignment) // 移除派工
			scoped.DELETE("/invites/:id", inviteHandler.Revoke)               // 撤销邀请

			phaseGroup := scoped.Group("/phases/:id")
			{
				phaseGroup.PUT("", planHandler.UpdatePhase)
				phaseGroup.DELETE("", planHandler.DeletePhase)
				phaseGroup.POST("/move", planHandler.MovePhase) // 上移/下移
			}

			taskGroup := scoped.Group("/tasks/:id")
			{
				taskGroup.PUT("", planHandler.UpdateTask)
				taskGroup.DELETE("", planHandler.DeleteTask)
				taskGroup.POST("/move", planHandler.MoveTask)
				taskGroup.PUT("/phase", planHandler.ChangeTaskPhase) // 换阶段
				taskGroup.GET("/checklists", checklistHandler.List)
				taskGroup.POST("/checklists", checklistHandler.Create)
			}

			checklistGroup := scoped.Group("/checklists/:id")
			{
				checklistGroup.PUT("", checklistHandler.Rename)
				checklistGroup.DELETE("", checklistHandler.Delete)
				checklistGroup.POST("/duplicate", checklistHandler.Duplicate)
				checklistGroup.POST("/items", checklistHandler.AddItem)
			}

			itemGroup := scoped.Group("/checklist-items/:id")
			{
				itemGroup.PUT("", checklistHandler.UpdateItem)
				itemGroup.DELETE("", checklistHandler.DeleteItem)
				itemGroup.POST("/move", checklistHandler.MoveItem)
			}

			budgetGroup := scoped.Group("/budget-lines/:id")
			{
				budgetGroup.PUT("", PermWrapper(ledgerHandler.UpdateBudgetLine, auth.PermBudgetManage))
				budgetGroup.DELETE("", PermWrapper(ledgerHandler.DeleteBudgetLine, auth.PermBudgetManage))
			}

			scoped.GET("/time-logs/report", PermWrapper(ledgerHandler.HoursReport, auth.PermTimeLogReport)) // 工时报表

			timeLogGroup := scoped.Group("/time-logs/:id")
			{
				timeLogGroup.POST("/review", ledgerHandler.ReviewTimeLog) // 审批
				timeLogGroup.DELETE("", ledgerHandler.DeleteTimeLog)
			}

			// 排班
			scoped.GET("/shifts", shiftHandler.List)
			scoped.POST("/shifts", shiftHandler.Create)
			scoped.DELETE("/shifts/:id", shiftHandler.Delete)

			// 数据变更推送
			scoped.GET("/realtime", realtimeHandler.Stream)
		}
	}

	return r
}
