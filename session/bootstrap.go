package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"txsentinel-tui/identity"
	"txsentinel-tui/notify"
	"txsentinel-tui/protocol"
	"txsentinel-tui/rpc"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrNotificationsDenied = errors.New("Notifications permission denied")

// IdentityError means no signing identity could be obtained
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("no wallet available: %v", e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// PermissionError means the user did not grant desktop notifications
type PermissionError struct {
	Permission notify.Permission
}

func (e *PermissionError) Error() string { return ErrNotificationsDenied.Error() }

func (e *PermissionError) Unwrap() error { return ErrNotificationsDenied }

// Session is a connected, registered TxSentinel session
type Session struct {
	ID     uuid.UUID
	Wallet common.Address
	Conn   *Connection
}

// Bootstrap opens sessions. RPCURL is optional: when set, the chain behind
// it is checked before connecting and any failure is only logged.
type Bootstrap struct {
	Identity         identity.Provider
	Permissions      notify.Permissions
	URL              string
	RPCURL           string
	ChainID          string
	HandshakeTimeout time.Duration
	Dialer           *websocket.Dialer
	Logger           *log.Logger
}

// Start acquires the identity, checks notification permission, connects,
// registers the wallet and returns the live session. Nothing stays open when
// it fails.
func (b Bootstrap) Start(ctx context.Context, h Handlers) (Session, error) {
	logger := b.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	if b.Identity == nil {
		return Session{}, &IdentityError{Err: identity.ErrNoWallet}
	}
	signer, err := b.Identity.Signer(ctx)
	if err != nil {
		return Session{}, &IdentityError{Err: err}
	}
	logger.Debug("identity acquired", "address", signer.Address.Hex())

	if b.RPCURL != "" {
		b.checkChain(ctx, logger)
	}

	perm := notify.Default
	if b.Permissions != nil {
		perm, err = b.Permissions.RequestPermission(ctx)
		if err != nil {
			return Session{}, fmt.Errorf("requesting notification permission: %w", err)
		}
	}
	if perm != notify.Granted {
		return Session{}, &PermissionError{Permission: perm}
	}

	opts := []Option{WithLogger(logger), WithHandshakeTimeout(b.HandshakeTimeout)}
	if b.Dialer != nil {
		opts = append(opts, WithDialer(b.Dialer))
	}
	conn, err := Open(ctx, b.URL, h, opts...)
	if err != nil {
		return Session{}, err
	}

	if err := conn.Send(protocol.WalletTrack{Address: signer.Address.Hex()}); err != nil {
		// the reader reports the failure through OnClose
		logger.Warn("wallet registration not sent", "err", err)
	}

	if err := ctx.Err(); err != nil {
		conn.Close()
		return Session{}, err
	}

	return Session{ID: uuid.New(), Wallet: signer.Address, Conn: conn}, nil
}

// checkChain makes sure the TxSentinel RPC answers for the expected chain.
// Wallet side chain registration is best effort, so errors never abort.
func (b Bootstrap) checkChain(ctx context.Context, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	info, err := rpc.CheckEndpoint(ctx, b.RPCURL, b.ChainID)
	if err != nil {
		logger.Warn("chain check failed", "rpc", b.RPCURL, "err", err)
		return
	}
	logger.Info("chain verified", "rpc", info.URL, "chain", info.ChainID, "head", info.Head)
}
