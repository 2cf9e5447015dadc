package valueobjects

import "fmt"

// ConnectionType describes which network target a probe used.
type ConnectionType string

const (
	ConnectionTypeDirect ConnectionType = "direct"
	ConnectionTypeTunnel ConnectionType = "tunnel"
)

func NewConnectionType(value string) (ConnectionType, error) {
	ct := ConnectionType(value)
	switch ct {
	case ConnectionTypeDirect, ConnectionTypeTunnel:
		return ct, nil
	default:
		return "", fmt.Errorf("invalid connection type: %s", value)
	}
}

func (ct ConnectionType) String() string {
	return string(ct)
}
