package models

import (
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
	RoleStaff   Role = "STAFF"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient, RoleStaff:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Name         string `gorm:"not null"`
	Surname      string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Phone        string
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"type:varchar(16);index;not null;default:PATIENT"`
}

// PatientSummary is the part of a user shown next to a queue entry.
type PatientSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Phone   string `json:"phone,omitempty"`
}

func (u User) Summary() PatientSummary {
	return PatientSummary{ID: u.ID, Name: u.Name, Surname: u.Surname, Phone: u.Phone}
}

// All returns every model managed by AutoMigrate.
func All() []any {
	return []any{&User{}, &Queue{}, &QueueEntry{}}
}
