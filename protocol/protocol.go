package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// MsgType is the "type" tag of every frame exchanged with TxSentinel
type MsgType string

const (
	// Client → Server
	TypeWalletTrack     MsgType = "WalletTrack"
	TypeTxAllow         MsgType = "TxAllow"
	TypeTxWarningAccept MsgType = "TxWarningAccept"

	// Server → Client
	TypeTxWarning     MsgType = "TxWarning"
	TypeBalanceUpdate MsgType = "BalanceUpdate"
)

var (
	ErrMissingType = errors.New("protocol: frame has no type")
	ErrMissingHash = errors.New("protocol: TxWarning without warningHash")
)

// ProtocolError reports an inbound frame that could not be decoded.
// Callers log and skip these frames.
type ProtocolError struct {
	Frame []byte
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol: malformed frame: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// -------------------- OUTBOUND --------------------

// Outbound is a client → server message
type Outbound interface {
	Type() MsgType
}

// WalletTrack registers the wallet to monitor; sent once after connecting
type WalletTrack struct {
	Address string `json:"address"`
}

// TxAllow lets a flagged transaction proceed
type TxAllow struct {
	TxHash string `json:"txHash"`
}

// TxWarningAccept acknowledges (cancels) a single warning
type TxWarningAccept struct {
	WarningHash string `json:"warningHash"`
}

func (WalletTrack) Type() MsgType     { return TypeWalletTrack }
func (TxAllow) Type() MsgType         { return TypeTxAllow }
func (TxWarningAccept) Type() MsgType { return TypeTxWarningAccept }

// Encode serializes an outbound message as a flat tagged object
func Encode(msg Outbound) ([]byte, error) {
	var fields map[string]any
	switch m := msg.(type) {
	case WalletTrack:
		fields = map[string]any{"address": m.Address}
	case TxAllow:
		fields = map[string]any{"txHash": m.TxHash}
	case TxWarningAccept:
		fields = map[string]any{"warningHash": m.WarningHash}
	default:
		return nil, fmt.Errorf("protocol: unsupported outbound message %T", msg)
	}
	fields["type"] = msg.Type()
	return json.Marshal(fields)
}

// -------------------- INBOUND --------------------

// ServerMessage is a decoded server → client frame.
// Concrete types: Warning, BalanceUpdate, Unknown.
type ServerMessage interface {
	MessageType() MsgType
}

// Warning flags a risk on an outgoing transaction. Severity and Description
// are carried verbatim; Raw keeps the whole frame for display.
type Warning struct {
	WarningHash string          `json:"warningHash"`
	TxHash      string          `json:"txHash"`
	Severity    string          `json:"severity,omitempty"`
	Description string          `json:"description,omitempty"`
	Raw         json.RawMessage `json:"-"`
}

// BalanceUpdate reports the TxSentinel balance of the tracked wallet
type BalanceUpdate struct {
	BalanceEth float64
}

// Unknown is any frame with a type this client does not interpret
type Unknown struct {
	Tag MsgType
	Raw json.RawMessage
}

func (Warning) MessageType() MsgType       { return TypeTxWarning }
func (BalanceUpdate) MessageType() MsgType { return TypeBalanceUpdate }
func (u Unknown) MessageType() MsgType     { return u.Tag }

// Decode parses an inbound frame. Unrecognized types decode to Unknown;
// only frames that are not tagged JSON objects return a *ProtocolError.
func Decode(frame []byte) (ServerMessage, error) {
	var env struct {
		Type MsgType `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &ProtocolError{Frame: frame, Err: err}
	}
	if env.Type == "" {
		return nil, &ProtocolError{Frame: frame, Err: ErrMissingType}
	}

	raw := append(json.RawMessage(nil), frame...)

	switch env.Type {
	case TypeTxWarning:
		var w Warning
		if err := json.Unmarshal(frame, &w); err != nil {
			return nil, &ProtocolError{Frame: frame, Err: err}
		}
		if w.WarningHash == "" {
			return nil, &ProtocolError{Frame: frame, Err: ErrMissingHash}
		}
		w.Raw = raw
		return w, nil

	case TypeBalanceUpdate:
		var b struct {
			Balance json.RawMessage `json:"balance"`
		}
		if err := json.Unmarshal(frame, &b); err != nil {
			return nil, &ProtocolError{Frame: frame, Err: err}
		}
		v, err := parseBalance(b.Balance)
		if err != nil {
			return nil, &ProtocolError{Frame: frame, Err: err}
		}
		return BalanceUpdate{BalanceEth: v}, nil
	}

	return Unknown{Tag: env.Type, Raw: raw}, nil
}

// parseBalance accepts a JSON number or a numeric string
func parseBalance(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, errors.New("balance missing")
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.Float64()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return strconv.ParseFloat(s, 64)
}
