package billing

import (
	"portal/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultTaskName = "Default Task"

// DefaultTaskRate is the billing rate of the Default Task when first created.
var DefaultTaskRate = decimal.NewFromInt(100)

// NewDefaultTask builds the record materialised on first demand.
func NewDefaultTask() *model.Task {
	key := model.DefaultTaskKey
	return &model.Task{
		Name:        DefaultTaskName,
		BillingRate: decimal.NewNullDecimal(DefaultTaskRate),
		Unit:        decimal.NewFromInt(1),
		SystemKey:   &key,
	}
}

// PickDefaultTask returns the task an entry without one should use: the
// project's default, then the owner's profile default. A nil result means
// the process-wide Default Task.
func PickDefaultTask(project *model.Project, profile *model.Profile) *uuid.UUID {
	if project != nil && project.DefaultTaskID != nil {
		return project.DefaultTaskID
	}
	if profile != nil && profile.DefaultTaskID != nil {
		return profile.DefaultTaskID
	}
	return nil
}
