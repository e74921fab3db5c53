package models

import (
	"time"

	"gorm.io/gorm"
)

// DateLayout is the format of Queue.Date: one queue per doctor per calendar day.
const DateLayout = "2006-01-02"

type Queue struct {
	gorm.Model
	DoctorID          uint         `gorm:"not null;uniqueIndex:idx_queues_doctor_date"`
	Doctor            User         `gorm:"foreignKey:DoctorID"`
	Date              string       `gorm:"type:varchar(10);not null;uniqueIndex:idx_queues_doctor_date"`
	CurrentPosition   int          `gorm:"not null;default:0"` // position of the most recently called entry
	EstimatedWaitTime int          `gorm:"not null;default:0"` // minutes
	Entries           []QueueEntry `gorm:"foreignKey:QueueID"`
}

// DayOf truncates t to the calendar day in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}
