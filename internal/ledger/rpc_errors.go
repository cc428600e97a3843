package ledger

// rpc_errors.go classifies errors returned by the node.
//
// JSON-RPC error responses mean the node received the request and rejected it (submission errors).
// Anything else (connection failures, HTTP errors, deadlines) is a transport error.

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const revertedPrefix = "execution reverted"

func classifySendError(err error) error {
	return classifyCallError(err, "ledger rejected transaction")
}

func classifyCallError(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return WrapTransportError(err, msg)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return WrapSubmissionError(err, msg, revertReason(err))
	}
	return WrapTransportError(err, msg)
}

// revertReason extracts the Error(string) reason from a JSON-RPC error.
// The ABI encoded revert data is used when the node returns it, otherwise the reason is taken from the message.
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, revertedPrefix+": "); i >= 0 {
		return strings.TrimSpace(msg[i+len(revertedPrefix)+2:])
	}
	return ""
}
