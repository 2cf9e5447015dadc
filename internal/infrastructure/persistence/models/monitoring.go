package models

import "time"

// EndpointModel is the persistence model for monitored hypervisor endpoints.
type EndpointModel struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"size:255;not null;uniqueIndex"`
	Host          string `gorm:"size:255;not null"`
	Port          uint16 `gorm:"not null"`
	TunnelHost    string `gorm:"size:255"`
	TunnelPort    uint16
	CredentialRef string `gorm:"size:64;not null"`
	VerifyTLS     bool   `gorm:"not null;default:true"`
	Active        bool   `gorm:"not null;default:true;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (EndpointModel) TableName() string {
	return "endpoints"
}

// EndpointStatusModel holds the debounced status and timeout policy for one
// endpoint. One row per endpoint.
type EndpointStatusModel struct {
	ID                   uint   `gorm:"primaryKey"`
	EndpointID           uint   `gorm:"not null;uniqueIndex"`
	State                string `gorm:"size:16;not null;default:'unknown'"`
	SuccessRate          float64
	LastCheckedAt        *time.Time
	LastError            string `gorm:"size:1024"`
	CurrentTimeoutMs     uint32 `gorm:"not null"`
	RecommendedTimeoutMs uint32 `gorm:"not null"`
	UpdatedAt            time.Time
}

func (EndpointStatusModel) TableName() string {
	return "endpoint_statuses"
}

// ProbeRecordModel is the append-only probe history row feeding trend views.
type ProbeRecordModel struct {
	ID             uint `gorm:"primaryKey"`
	EndpointID     uint `gorm:"not null;index:idx_probe_records_endpoint_ts"`
	Success        bool `gorm:"not null"`
	ResponseTimeMs *uint32
	ErrorMessage   *string   `gorm:"size:1024"`
	UsedTunnel     bool      `gorm:"not null"`
	TimeoutUsedMs  uint32    `gorm:"not null"`
	RetryCount     int       `gorm:"not null;default:0"`
	Timestamp      time.Time `gorm:"not null;index:idx_probe_records_endpoint_ts"`
}

func (ProbeRecordModel) TableName() string {
	return "probe_records"
}

// AlertEpisodeModel persists alert episodes. At most one active row per
// (endpoint_id, kind), enforced by the hysteresis engine.
type AlertEpisodeModel struct {
	ID                 uint      `gorm:"primaryKey"`
	EndpointID         uint      `gorm:"not null;index:idx_alert_episodes_endpoint_kind"`
	Kind               string    `gorm:"size:16;not null;index:idx_alert_episodes_endpoint_kind"`
	Active             bool      `gorm:"not null;index"`
	OpenedAt           time.Time `gorm:"not null"`
	ClosedAt           *time.Time
	ThresholdAtTrigger float64
}

func (AlertEpisodeModel) TableName() string {
	return "alert_episodes"
}

// EndpointCredentialModel stores AES-GCM encrypted endpoint credentials,
// addressed by the opaque reference held on the endpoint.
type EndpointCredentialModel struct {
	ID         uint   `gorm:"primaryKey"`
	Ref        string `gorm:"size:64;not null;uniqueIndex"`
	Ciphertext []byte `gorm:"type:blob;not null"`
	Nonce      []byte `gorm:"type:varbinary(32);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (EndpointCredentialModel) TableName() string {
	return "endpoint_credentials"
}

// AllModels lists every persistence model for schema migration.
func AllModels() []interface{} {
	return []interface{}{
		&EndpointModel{},
		&EndpointStatusModel{},
		&ProbeRecordModel{},
		&AlertEpisodeModel{},
		&EndpointCredentialModel{},
	}
}
