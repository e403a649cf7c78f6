package constants

import "fmt"

var timeLogStatusName = map[string]string{
	TimeLogStatusSubmitted: "Submitted",
	TimeLogStatusApproved:  "Approved",
	TimeLogStatusRejected:  "Rejected",
}

// TimeLogStatusToString 工时状态显示名
func TimeLogStatusToString(status string) string {
	if name, ok := timeLogStatusName[status]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%s)", status)
}

// IsTimeLogReview 是否为审批结果状态
func IsTimeLogReview(status string) bool {
	return status == TimeLogStatusApproved || status == TimeLogStatusRejected
}

var orgRoleRank = map[string]int{
	OrgRoleWorker:  1,
	OrgRoleManager: 2,
	OrgRoleAdmin:   3,
}

// IsOrgRole 是否为合法的组织角色
func IsOrgRole(role string) bool {
	_, ok := orgRoleRank[role]
	return ok
}
