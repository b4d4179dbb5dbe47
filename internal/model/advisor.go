package model

import (
	"time"

	"github.com/google/uuid"
)

type AdvisorStatus string

const (
	AdvisorStatusAvailable AdvisorStatus = "available"
	AdvisorStatusBusy      AdvisorStatus = "busy"
	AdvisorStatusOffline   AdvisorStatus = "offline"
)

func (s AdvisorStatus) Valid() bool {
	switch s {
	case AdvisorStatusAvailable, AdvisorStatusBusy, AdvisorStatusOffline:
		return true
	}
	return false
}

type Advisor struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	Email         string        `db:"email" json:"email"`
	Status        AdvisorStatus `db:"status" json:"status"`
	ModuleNumber  int           `db:"module_number" json:"module_number"`
	AssignedCount int           `db:"assigned_count" json:"assigned_count"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

type UpdateAdvisorStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=available busy offline"`
}
