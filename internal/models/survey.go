package models

import "time"

// CustomerSurvey is an infrastructure/interest survey submitted from the
// public intake form. It has no relationship to accounts or registrations.
type CustomerSurvey struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	CustomerName     string    `json:"customer_name" gorm:"type:varchar(255);not null"`
	CustomerLocation string    `json:"customer_location" gorm:"type:varchar(255);not null"`
	Category         string    `json:"category" gorm:"type:varchar(64);not null"`
	ParticipantName  string    `json:"participant_name" gorm:"type:varchar(255);not null"`
	ParticipantEmail string    `json:"participant_email" gorm:"type:varchar(255);not null"`
	BaseModelSize    string    `json:"base_model_size" gorm:"type:varchar(16);not null"`
	IsCustom         string    `json:"is_custom" gorm:"type:varchar(3);not null"`
	OnHuggingFace    string    `json:"on_hugging_face" gorm:"type:varchar(3);not null"`
	HFLink           string    `json:"hf_link" gorm:"type:varchar(512);not null"`
	Architecture     string    `json:"architecture" gorm:"type:varchar(255);not null"`
	Workloads        string    `json:"workloads" gorm:"type:varchar(32);not null"`
	InfraType        string    `json:"infra_type" gorm:"type:varchar(64);not null"`
	Motherboard      string    `json:"motherboard" gorm:"type:varchar(255)"`
	Processor        string    `json:"processor" gorm:"type:varchar(255)"`
	DRAM             string    `json:"dram" gorm:"type:varchar(255)"`
	GPUs             string    `json:"gpus" gorm:"type:varchar(255)"`
	OS               string    `json:"os" gorm:"type:varchar(255)"`
	SubmittedAt      time.Time `json:"submitted_at" gorm:"autoCreateTime"`
}

func (CustomerSurvey) TableName() string { return "customers" }
