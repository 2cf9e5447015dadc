package endpoint

import (
	"time"

	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

// ProbeTiming breaks a probe's wall-clock time into stages, in milliseconds.
// TotalMs is measured; the stage components are measured where the transport
// exposes them and estimated proportionally otherwise.
type ProbeTiming struct {
	DNSMs   uint32
	TCPMs   uint32
	TLSMs   uint32
	APIMs   uint32
	TotalMs uint32
}

// TunnelInfo describes the tunnel target a probe went through.
type TunnelInfo struct {
	Hostname string
	Port     uint16
}

// ProbeResult is the outcome of one probe invocation. Ephemeral: it feeds
// the status tracker and calibrator and is persisted as a ProbeRecord, but
// is not retained in memory.
type ProbeResult struct {
	Success         bool
	Timing          ProbeTiming
	ResolvedAddress string
	ConnectionType  vo.ConnectionType
	TunnelInfo      *TunnelInfo
	ErrorStage      vo.ErrorStage
	ErrorMessage    string
	RemoteVersion   string
	NodeCount       uint32
}

// NewFailedProbeResult builds a failure result for the given stage.
func NewFailedProbeResult(stage vo.ErrorStage, message string, connType vo.ConnectionType, totalMs uint32) *ProbeResult {
	return &ProbeResult{
		Success:        false,
		Timing:         ProbeTiming{TotalMs: totalMs},
		ConnectionType: connType,
		ErrorStage:     stage,
		ErrorMessage:   message,
	}
}

// ProbeRecord is the append-only persisted form of a probe outcome, kept
// for trend analysis. Every probe invocation yields exactly one record.
type ProbeRecord struct {
	ID             uint
	EndpointID     uint
	Success        bool
	ResponseTimeMs *uint32
	ErrorMessage   *string
	UsedTunnel     bool
	TimeoutUsedMs  uint32
	RetryCount     int
	Timestamp      time.Time
}

// NewProbeRecord derives the persisted record from a probe result.
func NewProbeRecord(endpointID uint, result *ProbeResult, timeoutUsedMs uint32, retryCount int, at time.Time) *ProbeRecord {
	record := &ProbeRecord{
		EndpointID:    endpointID,
		Success:       result.Success,
		UsedTunnel:    result.ConnectionType == vo.ConnectionTypeTunnel,
		TimeoutUsedMs: timeoutUsedMs,
		RetryCount:    retryCount,
		Timestamp:     at,
	}
	if result.Success {
		total := result.Timing.TotalMs
		record.ResponseTimeMs = &total
	}
	if result.ErrorMessage != "" {
		msg := result.ErrorMessage
		record.ErrorMessage = &msg
	}
	return record
}
