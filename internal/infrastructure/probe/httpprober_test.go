package probe

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"hyperfleet/internal/domain/endpoint"
	vo "hyperfleet/internal/domain/endpoint/valueobjects"
	"hyperfleet/internal/infrastructure/credentials"
	"hyperfleet/internal/shared/logger"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantStage vo.ErrorStage
	}{
		{
			name:      "certificate verification maps to tls",
			err:       &url.Error{Op: "Get", URL: "https://pve:8006", Err: x509.UnknownAuthorityError{}},
			wantStage: vo.ErrorStageTLS,
		},
		{
			name:      "dns failure maps to dns",
			err:       &url.Error{Op: "Get", URL: "https://pve:8006", Err: &net.DNSError{Name: "pve.internal", Err: "no such host"}},
			wantStage: vo.ErrorStageDNS,
		},
		{
			name:      "context deadline maps to tcp timeout",
			err:       &url.Error{Op: "Get", URL: "https://pve:8006", Err: context.DeadlineExceeded},
			wantStage: vo.ErrorStageTCP,
		},
		{
			name:      "net timeout maps to tcp timeout",
			err:       &url.Error{Op: "Get", URL: "https://pve:8006", Err: timeoutError{}},
			wantStage: vo.ErrorStageTCP,
		},
		{
			name:      "connection refused maps to tcp",
			err:       &url.Error{Op: "Get", URL: "https://pve:8006", Err: errors.New("connect: connection refused")},
			wantStage: vo.ErrorStageTCP,
		},
		{
			name: "tls takes priority over dns wrapping",
			err: &url.Error{
				Op:  "Get",
				URL: "https://pve:8006",
				Err: errors.New("tls: handshake failure"),
			},
			wantStage: vo.ErrorStageTLS,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, message := classifyTransportError(tt.err, 30000)
			assert.Equal(t, tt.wantStage, stage)
			assert.NotEmpty(t, message)
		})
	}
}

func TestClassifyTransportErrorTimeoutMentionsBudget(t *testing.T) {
	_, message := classifyTransportError(context.DeadlineExceeded, 12000)
	assert.Contains(t, message, "12000ms")
}

func TestStageClockTimingMeasured(t *testing.T) {
	base := time.Now()
	clock := &stageClock{
		dnsStart:     base,
		dnsDone:      base.Add(20 * time.Millisecond),
		connectStart: base.Add(20 * time.Millisecond),
		connectDone:  base.Add(70 * time.Millisecond),
		tlsStart:     base.Add(70 * time.Millisecond),
		tlsDone:      base.Add(170 * time.Millisecond),
	}

	timing := clock.timing(400*time.Millisecond, true)

	assert.Equal(t, uint32(400), timing.TotalMs)
	assert.Equal(t, uint32(20), timing.DNSMs)
	assert.Equal(t, uint32(50), timing.TCPMs)
	assert.Equal(t, uint32(100), timing.TLSMs)
	assert.Equal(t, uint32(230), timing.APIMs)
}

func TestStageClockTimingFallbackApportionment(t *testing.T) {
	clock := &stageClock{}

	timing := clock.timing(1000*time.Millisecond, true)

	assert.Equal(t, uint32(1000), timing.TotalMs)
	assert.Equal(t, uint32(0), timing.DNSMs)
	assert.Equal(t, uint32(150), timing.TCPMs)
	assert.Equal(t, uint32(250), timing.TLSMs)
	assert.Equal(t, uint32(600), timing.APIMs)
}

func TestStageClockTimingFailureBeforeConnect(t *testing.T) {
	base := time.Now()
	clock := &stageClock{
		dnsStart: base,
		dnsDone:  base.Add(30 * time.Millisecond),
	}

	timing := clock.timing(30*time.Millisecond, false)

	assert.Equal(t, uint32(30), timing.TotalMs)
	assert.Equal(t, uint32(30), timing.DNSMs)
	assert.Equal(t, uint32(0), timing.TCPMs)
	assert.Equal(t, uint32(0), timing.TLSMs)
	assert.Equal(t, uint32(0), timing.APIMs)
}

// blockingCredentialStore hangs until the caller's context expires.
type blockingCredentialStore struct{}

func (blockingCredentialStore) Resolve(ctx context.Context, _ string) (*credentials.Credential, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingCredentialStore) Save(context.Context, string, *credentials.Credential) error {
	return nil
}

func TestProbeDeadlineCoversCredentialResolution(t *testing.T) {
	log := logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
	prober := NewHTTPProber(blockingCredentialStore{}, log)

	now := time.Now().UTC()
	ep := endpoint.ReconstructEndpoint(
		1, "pve-01", "pve01.internal", 8006,
		"", 0, "cred-1", true, true, now, now,
	)

	start := time.Now()
	result := prober.Probe(context.Background(), ep, 100)
	elapsed := time.Since(start)

	// a hung credential lookup must not stretch the probe past its budget
	assert.Less(t, elapsed, 3*time.Second)
	assert.False(t, result.Success)
	assert.Equal(t, vo.ErrorStageAPI, result.ErrorStage)
	assert.Contains(t, result.ErrorMessage, "credential resolution failed")
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "8.2-1", parseVersion([]byte(`{"data":{"version":"8.2","release":"1"}}`)))
	assert.Equal(t, "8.2", parseVersion([]byte(`{"data":{"version":"8.2"}}`)))
	assert.Equal(t, "", parseVersion([]byte(`not json`)))
}
