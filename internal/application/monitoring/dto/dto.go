// Package dto defines the serializable views the monitoring API returns.
package dto

import (
	"time"

	"hyperfleet/internal/domain/endpoint"
	"hyperfleet/internal/shared/biztime"
)

// EndpointDTO is the API representation of an endpoint.
type EndpointDTO struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Port       uint16 `json:"port"`
	TunnelHost string `json:"tunnel_host,omitempty"`
	TunnelPort uint16 `json:"tunnel_port,omitempty"`
	VerifyTLS  bool   `json:"verify_tls"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// EndpointStatusDTO is the API representation of an endpoint's live status
// and timeout policy.
type EndpointStatusDTO struct {
	EndpointID           uint    `json:"endpoint_id"`
	State                string  `json:"state"`
	SuccessRate          float64 `json:"success_rate"`
	LastCheckedAt        string  `json:"last_checked_at,omitempty"`
	LastError            string  `json:"last_error,omitempty"`
	CurrentTimeoutMs     uint32  `json:"current_timeout_ms"`
	RecommendedTimeoutMs uint32  `json:"recommended_timeout_ms"`
}

// ProbeRecordDTO is one row of the probe history feed.
type ProbeRecordDTO struct {
	ID             uint    `json:"id"`
	EndpointID     uint    `json:"endpoint_id"`
	Success        bool    `json:"success"`
	ResponseTimeMs *uint32 `json:"response_time_ms,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	UsedTunnel     bool    `json:"used_tunnel"`
	TimeoutUsedMs  uint32  `json:"timeout_used_ms"`
	RetryCount     int     `json:"retry_count"`
	Timestamp      string  `json:"timestamp"`
}

// FleetStatusDTO is the fleet-wide aggregate of health states.
type FleetStatusDTO struct {
	Total      int    `json:"total"`
	Online     int    `json:"online"`
	Degraded   int    `json:"degraded"`
	Offline    int    `json:"offline"`
	Unknown    int    `json:"unknown"`
	Checking   int    `json:"checking"`
	ComputedAt string `json:"computed_at"`
	FromCache  bool   `json:"from_cache"`
}

// NewEndpointDTO converts the domain aggregate.
func NewEndpointDTO(ep *endpoint.Endpoint) *EndpointDTO {
	return &EndpointDTO{
		ID:         ep.ID(),
		Name:       ep.Name(),
		Host:       ep.Host(),
		Port:       ep.Port(),
		TunnelHost: ep.TunnelHost(),
		TunnelPort: ep.TunnelPort(),
		VerifyTLS:  ep.VerifyTLS(),
		Active:     ep.IsActive(),
		CreatedAt:  biztime.FormatMetadataTime(ep.CreatedAt()),
		UpdatedAt:  biztime.FormatMetadataTime(ep.UpdatedAt()),
	}
}

// NewProbeRecordDTO converts a persisted probe record.
func NewProbeRecordDTO(record *endpoint.ProbeRecord) *ProbeRecordDTO {
	return &ProbeRecordDTO{
		ID:             record.ID,
		EndpointID:     record.EndpointID,
		Success:        record.Success,
		ResponseTimeMs: record.ResponseTimeMs,
		ErrorMessage:   record.ErrorMessage,
		UsedTunnel:     record.UsedTunnel,
		TimeoutUsedMs:  record.TimeoutUsedMs,
		RetryCount:     record.RetryCount,
		Timestamp:      biztime.FormatMetadataTime(record.Timestamp),
	}
}

// FormatCheckedAt renders an optional last-checked timestamp.
func FormatCheckedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return biztime.FormatMetadataTime(t)
}
