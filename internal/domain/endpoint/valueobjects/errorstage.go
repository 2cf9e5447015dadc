package valueobjects

import "fmt"

// ErrorStage identifies where a failed probe gave up.
type ErrorStage string

const (
	ErrorStageNone ErrorStage = "none"
	ErrorStageDNS  ErrorStage = "dns"
	ErrorStageTCP  ErrorStage = "tcp"
	ErrorStageTLS  ErrorStage = "tls"
	ErrorStageAPI  ErrorStage = "api"
)

func NewErrorStage(value string) (ErrorStage, error) {
	es := ErrorStage(value)
	switch es {
	case ErrorStageNone, ErrorStageDNS, ErrorStageTCP, ErrorStageTLS, ErrorStageAPI:
		return es, nil
	default:
		return "", fmt.Errorf("invalid error stage: %s", value)
	}
}

func (es ErrorStage) String() string {
	return string(es)
}
