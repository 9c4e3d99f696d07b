package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// SchemaVersion is written to schema_infos on first setup.
const SchemaVersion = 1

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SchemaInfo{},
	&SavedBuild{},
	&ScoreRecord{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SchemaInfo records which application created the database
type SchemaInfo struct {
	gorm.Model
	AppName       string `json:"appName" gorm:"size:127"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*SchemaInfo) TableName() string {
	return "schema_infos"
}

////////////////////////
// BUILD MODELS
////////////////////////

// SavedBuild is a named build. The decoded build is kept as JSON next to its
// token so listing does not need to decode every row.
type SavedBuild struct {
	gorm.Model
	Name     string         `json:"name" gorm:"size:127;index:idx_saved_build_name"`
	Version  string         `json:"version" gorm:"size:8"`
	Token    string         `json:"token" gorm:"size:1024;index:idx_saved_build_token"`
	MainID   int            `json:"mainId" gorm:"index:idx_saved_build_main_id"`
	MainName string         `json:"mainName" gorm:"size:127"`
	Payload  datatypes.JSON `json:"payload"`
}

func (*SavedBuild) TableName() string {
	return "saved_builds"
}

// ScoreRecord is one score computation
type ScoreRecord struct {
	ID            uint           `json:"id" gorm:"primarykey;autoIncrement"`
	BuildID       uint           `json:"buildId" gorm:"index:idx_score_record_build_id"`
	Token         string         `json:"token" gorm:"size:1024"`
	TotalScore    float64        `json:"totalScore"`
	EffectCount   int            `json:"effectCount"`
	Contributions datatypes.JSON `json:"contributions"`
	ComputedAt    time.Time      `json:"computedAt" gorm:"index:idx_score_record_computed_at"`
}

func (*ScoreRecord) TableName() string {
	return "score_records"
}
