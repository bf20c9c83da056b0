package auth

import (
	"fmt"
	"strings"
)

const (
	RoleStudent    = "student"
	RoleFaculty    = "faculty"
	RoleMentor     = "mentor"
	RoleHOD        = "hod"
	RoleAdmin      = "admin" // lab incharge
	RoleTechnician = "technician"
)

// StaffRoles は auth_accounts に登録できるロール
var StaffRoles = []string{RoleFaculty, RoleMentor, RoleHOD, RoleAdmin, RoleTechnician}

func IsStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity はログイン中ユーザーのロールと表示用属性
type Identity struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Year       string `json:"year,omitempty"`
	Campus     string `json:"campus,omitempty"`
	School     string `json:"school,omitempty"`
	RollNumber string `json:"roll_number,omitempty"`
}

var (
	campusNames = map[string]string{"ch": "Chennai"}
	schoolNames = map[string]string{"en": "School of Engineering", "sc": "School of Computing"}
	deptNames   = map[string]string{
		"rai": "Robotics & AI", "cse": "Computer Science", "ece": "Electronics & Comm.",
	}
	yearNames = map[string]string{
		"25": "1st Year", "24": "2nd Year", "23": "3rd Year", "22": "4th Year",
	}
)

// ParseStudentEmail: <campus>.<school>.<xx><dept(3)><roll>@<domain> を学生として解釈する
// 例) ch.en.u4rai23001@ch.students.amrita.edu
func ParseStudentEmail(email, domain string) (Identity, bool) {
	user, host, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || !strings.EqualFold(host, domain) {
		return Identity{}, false
	}
	parts := strings.Split(strings.ToLower(user), ".")
	if len(parts) != 3 {
		return Identity{}, false
	}
	campus, school, idPart := parts[0], parts[1], parts[2]
	if len(idPart) < 7 {
		return Identity{}, false
	}
	dept := idPart[2:5]
	roll := idPart[5:]
	year := roll[:2]

	return Identity{
		Email:      strings.TrimSpace(email),
		Role:       RoleStudent,
		Name:       "Student " + roll,
		Campus:     lookup(campusNames, campus, strings.ToUpper(campus)),
		School:     lookup(schoolNames, school, strings.ToUpper(school)),
		Department: lookup(deptNames, dept, strings.ToUpper(dept)),
		Year:       lookup(yearNames, year, fmt.Sprintf("Year %s", year)),
		RollNumber: roll,
	}, true
}

func lookup(m map[string]string, k, def string) string {
	if v, ok := m[k]; ok {
		return v
	}
	return def
}
