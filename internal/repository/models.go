// Package repository provides database abstraction for the sptrsv-sim service.
package repository

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/sptrsv/sptrsv-sim/pkg/model"
)

// RunRecord represents the sptrsv_runs table.
type RunRecord struct {
	ID              int64            `gorm:"column:id;primaryKey;autoIncrement"`
	RunUUID         string           `gorm:"column:run_uuid;type:varchar(64);uniqueIndex"`
	SourceName      string           `gorm:"column:source_name;type:varchar(256)"`
	Status          model.RunStatus  `gorm:"column:status"`
	StatusInfo      string           `gorm:"column:status_info;type:text"`
	NodeCount       int              `gorm:"column:node_count"`
	MaxMEC          int              `gorm:"column:max_mec"`
	TotalCycles     int              `gorm:"column:total_cycles"`
	PEActiveCycles  int              `gorm:"column:pe_active_cycles"`
	NFUActiveCycles int              `gorm:"column:nfu_active_cycles"`
	TraceBucket     string           `gorm:"column:trace_bucket;type:varchar(128)"`
	TraceKey        string           `gorm:"column:trace_key;type:varchar(512)"`
	DAGJSON         JSONField        `gorm:"column:dag_json;type:json"`
	CreateTime      time.Time        `gorm:"column:create_time;autoCreateTime"`
	BeginTime       *time.Time       `gorm:"column:begin_time"`
	EndTime         *time.Time       `gorm:"column:end_time"`
}

// TableName returns the table name for RunRecord.
func (RunRecord) TableName() string {
	return "sptrsv_runs"
}

// ToModel converts a RunRecord to a model.Run.
func (r *RunRecord) ToModel() *model.Run {
	return &model.Run{
		ID:              r.ID,
		RunUUID:         r.RunUUID,
		SourceName:      r.SourceName,
		Status:          r.Status,
		StatusInfo:      r.StatusInfo,
		NodeCount:       r.NodeCount,
		MaxMEC:          r.MaxMEC,
		TotalCycles:     r.TotalCycles,
		PEActiveCycles:  r.PEActiveCycles,
		NFUActiveCycles: r.NFUActiveCycles,
		TraceBucket:     r.TraceBucket,
		TraceKey:        r.TraceKey,
		DAGJSON:         []byte(r.DAGJSON),
		CreateTime:      r.CreateTime,
		BeginTime:       r.BeginTime,
		EndTime:         r.EndTime,
	}
}

// runRecordFromModel builds a RunRecord from a model.Run.
func runRecordFromModel(run *model.Run) *RunRecord {
	var dagJSON JSONField
	if run.DAGJSON != nil {
		dagJSON = JSONField(run.DAGJSON)
	}
	return &RunRecord{
		ID:              run.ID,
		RunUUID:         run.RunUUID,
		SourceName:      run.SourceName,
		Status:          run.Status,
		StatusInfo:      run.StatusInfo,
		NodeCount:       run.NodeCount,
		MaxMEC:          run.MaxMEC,
		TotalCycles:     run.TotalCycles,
		PEActiveCycles:  run.PEActiveCycles,
		NFUActiveCycles: run.NFUActiveCycles,
		TraceBucket:     run.TraceBucket,
		TraceKey:        run.TraceKey,
		DAGJSON:         dagJSON,
		CreateTime:      run.CreateTime,
		BeginTime:       run.BeginTime,
		EndTime:         run.EndTime,
	}
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
