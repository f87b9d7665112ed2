package models

import "fmt"

// Role 用户角色
type Role string

const (
	RoleResponder Role = "responder"
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleStaff     Role = "staff"
)

// ParseRole 解析角色字符串
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleResponder, RoleStudent, RoleTeacher, RoleStaff:
		return r, nil
	default:
		return "", fmt.Errorf("未知角色: %q", s)
	}
}

// CanResolve 只有响应者可以解除警报
func (r Role) CanResolve() bool { return r == RoleResponder }

// SeesAllAlerts 响应者看到系统内所有未解除警报，其他角色只看到自己发出的警报
func (r Role) SeesAllAlerts() bool { return r == RoleResponder }

// Actor 发起操作的身份
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}
