// Package api contains the request/response types of the B/L custody HTTP API and the logic
// used to turn errors from the lower level packages into HTTP responses.
//
// **types**
// the request and response structs are in api_types.go. Field names follow the wire format used by
// existing clients (snake_case, with a few legacy names such as ownershipHistory and isValid).
//
// **error handling**
// crypto, bl, ledger and custody have their own error types. They are mapped to api error codes and
// returned to the client as an ErrorResponse. Use RespondWithErrorResponse() to create and send the
// error response. The full error is logged server side; revert reasons are passed through to the
// client because they are the contract's explanation of why an operation was refused.
package api
