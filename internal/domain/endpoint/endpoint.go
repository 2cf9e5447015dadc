package endpoint

import (
	"fmt"
	"time"

	vo "hyperfleet/internal/domain/endpoint/valueobjects"
)

// Endpoint represents a remote hypervisor management interface being
// monitored. The engine only reads it; create/edit is owned by the fleet
// CRUD surface.
type Endpoint struct {
	id            uint
	name          string
	host          string
	port          uint16
	tunnelHost    string
	tunnelPort    uint16
	credentialRef string
	verifyTLS     bool
	active        bool
	createdAt     time.Time
	updatedAt     time.Time
}

// NewEndpoint creates a new endpoint aggregate.
func NewEndpoint(name, host string, port uint16, credentialRef string, verifyTLS bool) (*Endpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("endpoint name is required")
	}
	if host == "" {
		return nil, fmt.Errorf("endpoint host is required")
	}
	if port == 0 {
		return nil, fmt.Errorf("endpoint port is required")
	}
	if credentialRef == "" {
		return nil, fmt.Errorf("credential reference is required")
	}

	now := time.Now().UTC()
	return &Endpoint{
		name:          name,
		host:          host,
		port:          port,
		credentialRef: credentialRef,
		verifyTLS:     verifyTLS,
		active:        true,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructEndpoint reconstructs an endpoint from persistence.
func ReconstructEndpoint(
	id uint,
	name, host string,
	port uint16,
	tunnelHost string,
	tunnelPort uint16,
	credentialRef string,
	verifyTLS bool,
	active bool,
	createdAt, updatedAt time.Time,
) *Endpoint {
	return &Endpoint{
		id:            id,
		name:          name,
		host:          host,
		port:          port,
		tunnelHost:    tunnelHost,
		tunnelPort:    tunnelPort,
		credentialRef: credentialRef,
		verifyTLS:     verifyTLS,
		active:        active,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

func (e *Endpoint) SetID(id uint) error {
	if e.id != 0 {
		return fmt.Errorf("endpoint ID already set")
	}
	e.id = id
	return nil
}

// ConfigureTunnel sets the optional tunnel target, used preferentially
// over the primary host when configured.
func (e *Endpoint) ConfigureTunnel(host string, port uint16) error {
	if host == "" || port == 0 {
		return fmt.Errorf("tunnel host and port are required")
	}
	e.tunnelHost = host
	e.tunnelPort = port
	e.updatedAt = time.Now().UTC()
	return nil
}

// Deactivate marks the endpoint as excluded from monitoring.
func (e *Endpoint) Deactivate() {
	e.active = false
	e.updatedAt = time.Now().UTC()
}

// Activate marks the endpoint as monitored.
func (e *Endpoint) Activate() {
	e.active = true
	e.updatedAt = time.Now().UTC()
}

// HasTunnel reports whether a tunnel target is configured.
func (e *Endpoint) HasTunnel() bool {
	return e.tunnelHost != "" && e.tunnelPort != 0
}

// ProbeTarget returns the host, port and connection type a probe should use.
// The tunnel target wins when configured.
func (e *Endpoint) ProbeTarget() (string, uint16, vo.ConnectionType) {
	if e.HasTunnel() {
		return e.tunnelHost, e.tunnelPort, vo.ConnectionTypeTunnel
	}
	return e.host, e.port, vo.ConnectionTypeDirect
}

func (e *Endpoint) ID() uint              { return e.id }
func (e *Endpoint) Name() string          { return e.name }
func (e *Endpoint) Host() string          { return e.host }
func (e *Endpoint) Port() uint16          { return e.port }
func (e *Endpoint) TunnelHost() string    { return e.tunnelHost }
func (e *Endpoint) TunnelPort() uint16    { return e.tunnelPort }
func (e *Endpoint) CredentialRef() string { return e.credentialRef }
func (e *Endpoint) VerifyTLS() bool       { return e.verifyTLS }
func (e *Endpoint) IsActive() bool        { return e.active }
func (e *Endpoint) CreatedAt() time.Time  { return e.createdAt }
func (e *Endpoint) UpdatedAt() time.Time  { return e.updatedAt }
