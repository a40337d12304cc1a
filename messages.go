package main

import (
	"txsentinel-tui/notify"
	"txsentinel-tui/rpc"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// sessionChangedMsg signals that the session or its state changed
type sessionChangedMsg struct{}

// toastMsg is an in-app notice. local toasts come from the UI itself rather
// than the session bridge.
type toastMsg struct {
	level   notify.Level
	message string
	local   bool
}

// clearToastMsg expires the toast with the given id
type clearToastMsg struct {
	id int
}

// desktopNoticeMsg is a desktop notification raised by the session
type desktopNoticeMsg struct {
	n notify.Notification
}

// permissionRequestMsg asks the user to allow desktop notifications
type permissionRequestMsg struct {
	req notify.Request
}

// chainCheckedMsg contains the result of the chain RPC check
type chainCheckedMsg struct {
	info rpc.ChainInfo
	err  error
}

// sentMsg reports an outbound action
type sentMsg struct {
	what string
	err  error
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
}

// clearClipboardMsg clears clipboard feedback
type clearClipboardMsg struct{}
