package entity

import "time"

// Role is the capability tag carried by a user and by access tokens
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleSubAdmin       Role = "Sub-Admin"
	RoleWorkshop       Role = "Workshop"
	RoleFaculty        Role = "Faculty"
	RoleDepartment     Role = "Department"
	RoleTechnician     Role = "Technician"
	RoleHeadOfWorkshop Role = "Head of Workshop"
)

var roles = []Role{
	RoleAdmin, RoleSubAdmin, RoleWorkshop, RoleFaculty,
	RoleDepartment, RoleTechnician, RoleHeadOfWorkshop,
}

func (r Role) IsValid() bool {
	for _, known := range roles {
		if r == known {
			return true
		}
	}
	return false
}

// User is an entry of the user directory
type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// IsTechnician reports whether the user may be referenced as a technician
func (u *User) IsTechnician() bool {
	return u != nil && u.Role == RoleTechnician
}
