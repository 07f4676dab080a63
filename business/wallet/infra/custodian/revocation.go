package custodian

import (
	"context"
	"encoding/json"

	"github.com/crowdly/leasing-gateway/internal/logger"
	"github.com/crowdly/leasing-gateway/internal/wsconn"
)

// revocationMessage is the custodian's push format for session events.
type revocationMessage struct {
	Type    string `json:"type"`
	Subject string `json:"subject"`
	Reason  string `json:"reason,omitempty"`
}

const msgTypeSessionRevoked = "session.revoked"

// RevocationWatcher listens on the custodian's push channel for session
// revocations. The custodian can kill a session server-side (key
// rotation, abuse, expiry); without this channel the gateway would keep
// signing with a dead key until the next request fails.
type RevocationWatcher struct {
	conn     *wsconn.Client
	logger   logger.LoggerInterface
	onRevoke func(subject string)
}

// NewRevocationWatcher creates a watcher over the given push endpoint.
// onRevoke is called for every revocation affecting this client.
func NewRevocationWatcher(wsURL string, log logger.LoggerInterface, onRevoke func(subject string)) (*RevocationWatcher, error) {
	conn, err := wsconn.New(wsconn.DefaultConfig(wsURL, "custodian-push"))
	if err != nil {
		return nil, err
	}

	w := &RevocationWatcher{
		conn:     conn,
		logger:   log,
		onRevoke: onRevoke,
	}

	conn.OnMessage(w.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "custodian push channel state change",
				"state", string(state), "error", err)
		}
	})

	return w, nil
}

// Start connects the push channel. Reconnection is handled by the
// underlying connection.
func (w *RevocationWatcher) Start(ctx context.Context) error {
	return w.conn.Connect(ctx)
}

// Close tears the push channel down.
func (w *RevocationWatcher) Close() error {
	return w.conn.Close()
}

func (w *RevocationWatcher) handleMessage(ctx context.Context, msg []byte) {
	var m revocationMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		w.logger.Warn(ctx, "unparseable custodian push message", "error", err)
		return
	}

	if m.Type != msgTypeSessionRevoked {
		return
	}

	w.logger.Info(ctx, "session revoked by custodian",
		"subject", m.Subject, "reason", m.Reason)
	w.onRevoke(m.Subject)
}
