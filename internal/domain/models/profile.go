package models

import (
	"encoding/json"
	"fmt"
)

// Profile 用户偏好，按角色区分字段
//
// 实现类型只有 ResponderProfile、StudentProfile、TeacherProfile、StaffProfile。
type Profile interface {
	Role() Role
	HomeBuilding() string
}

// ResponderProfile 响应者
type ResponderProfile struct {
	BuildingNo    string `json:"buildingNo,omitempty"`
	LicensePhoto  string `json:"licensePhoto,omitempty"`
	ContactNumber string `json:"contactNumber"`
}

// StudentProfile 学生
type StudentProfile struct {
	BuildingNo            string `json:"buildingNo"`
	SchoolName            string `json:"schoolName"`
	Grade                 string `json:"grade"`
	Section               string `json:"section"`
	GuardianName          string `json:"guardianName,omitempty"`
	GuardianRelationship  string `json:"guardianRelationship,omitempty"`
	GuardianContactNumber string `json:"guardianContactNumber,omitempty"`
}

// TeacherProfile 教师
type TeacherProfile struct {
	BuildingNo string `json:"buildingNo"`
	SchoolName string `json:"schoolName"`
}

// StaffProfile 职员
type StaffProfile struct {
	BuildingNo string `json:"buildingNo"`
	Position   string `json:"position,omitempty"`
}

func (ResponderProfile) Role() Role { return RoleResponder }
func (StudentProfile) Role() Role   { return RoleStudent }
func (TeacherProfile) Role() Role   { return RoleTeacher }
func (StaffProfile) Role() Role     { return RoleStaff }

func (p ResponderProfile) HomeBuilding() string { return p.BuildingNo }
func (p StudentProfile) HomeBuilding() string   { return p.BuildingNo }
func (p TeacherProfile) HomeBuilding() string   { return p.BuildingNo }
func (p StaffProfile) HomeBuilding() string     { return p.BuildingNo }

// MarshalProfile 序列化为带 role 标签的JSON
func MarshalProfile(p Profile) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	role, _ := json.Marshal(p.Role())
	fields["role"] = role
	return json.Marshal(fields)
}

// UnmarshalProfile 根据 role 标签解析对应的偏好类型
func UnmarshalProfile(data []byte) (Profile, error) {
	var tag struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	role, err := ParseRole(tag.Role)
	if err != nil {
		return nil, err
	}

	var p Profile
	switch role {
	case RoleResponder:
		v := ResponderProfile{}
		err = json.Unmarshal(data, &v)
		p = v
	case RoleStudent:
		v := StudentProfile{}
		err = json.Unmarshal(data, &v)
		p = v
	case RoleTeacher:
		v := TeacherProfile{}
		err = json.Unmarshal(data, &v)
		p = v
	case RoleStaff:
		v := StaffProfile{}
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("未知角色: %q", role)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
