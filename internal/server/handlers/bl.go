package handlers

// bl.go implements the /v1/bl endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/information-sharing-networks/bl-custody/internal/api"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/custody"
	"github.com/information-sharing-networks/bl-custody/internal/events"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/information-sharing-networks/bl-custody/internal/logger"
	"github.com/information-sharing-networks/bl-custody/internal/services"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
)

// BLHandler handles the B/L custody endpoints
type BLHandler struct {
	custody  *custody.Client
	wallets  wallet.Provider
	events   events.Publisher
	accounts *services.AccountLocks

	// schema is the typed data schema used to sign and verify documents
	schema *crypto.TypedDataSchema

	// chainID is used in the verificationMethod of the proofs created by this server
	chainID int64
}

// NewBLHandler creates a new handler for the B/L endpoints
func NewBLHandler(custodyClient *custody.Client, svc *services.Services, schema *crypto.TypedDataSchema, chainID int64) *BLHandler {
	if schema == nil {
		schema = bl.DefaultSchema
	}
	publisher := svc.Events
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	accounts := svc.Accounts
	if accounts == nil {
		accounts = services.NewAccountLocks()
	}
	return &BLHandler{
		custody:  custodyClient,
		wallets:  svc.Wallets,
		events:   publisher,
		accounts: accounts,
		schema:   schema,
		chainID:  chainID,
	}
}

// HandleRegister godoc
//
//	@Summary		Register a B/L
//	@Description	Signs the B/L with the wallet of the cid, records the hash of the signed document on the ledger
//	@Description	and returns the new token id with the signed document.
//	@Description
//	@Description	The server sets id, @context, type, validFrom and validUntil before signing.
//	@Tags			B/L
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.RegisterRequest		true	"cid and unsigned B/L"
//	@Success		200		{object}	api.RegisterResponse	"B/L registered"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure		404		{object}	api.ErrorResponse		"Unknown CID"
//	@Failure		409		{object}	api.ErrorResponse		"Transaction rejected"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Failure		504		{object}	api.ErrorResponse		"Ledger timeout"
//	@Router			/v1/bl/register [post]
func (h *BLHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := requireCID(req.CID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	doc, err := api.ParseDocumentField("bl_json", req.BLJSON)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	acct, err := h.account(ctx, req.CID)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	defer acct.Wipe()

	signer, err := bl.NewSigner(h.schema, acct.PrivateKey, h.chainID)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	signed, err := signer.Create(doc)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	hash, err := signed.Hash()
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	unlock := h.accounts.Lock(acct.Address)
	res, err := h.custody.Mint(ctx, acct, hash)
	unlock()
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	logger.ContextWithLogAttrs(ctx,
		slog.String("token_id", res.TokenID.String()),
		slog.String("tx_hash", res.TxHash.Hex()),
	)

	event := events.NewCustodyEvent(events.EventMinted, res.TokenID.String(), req.CID, acct.Address.Hex(), res.TxHash.Hex(), res.BlockNumber)
	event.DocumentHash = hash
	h.publish(ctx, event)

	api.RespondWithJSONPayload(w, http.StatusOK, api.RegisterResponse{
		BLID:     api.NewBLID(res.TokenID),
		SignedBL: signed,
		TxHash:   res.TxHash.Hex(),
		Status:   api.StatusSuccess,
	})
}

// HandleTransfer godoc
//
//	@Summary		Request a transfer
//	@Description	Records a transfer request from the current owner (the wallet of the cid) to to_address.
//	@Description	The transfer completes when the recipient approves it (POST /v1/bl/approve).
//	@Tags			B/L
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.TransferRequest		true	"cid, token id and recipient"
//	@Success		200		{object}	api.ResultResponse		"Transfer requested"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure		404		{object}	api.ErrorResponse		"Unknown CID or B/L"
//	@Failure		409		{object}	api.ErrorResponse		"Transaction rejected (e.g. caller is not the owner)"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Failure		504		{object}	api.ErrorResponse		"Ledger timeout"
//	@Router			/v1/bl/transfer [post]
func (h *BLHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TransferRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := requireCIDAndToken(req.CID, req.BLID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	if req.ToAddress == "" {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("to_address is required"))
		return
	}
	to, err := crypto.ParseAddress(req.ToAddress)
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "to_address is not a valid address"))
		return
	}

	acct, err := h.account(ctx, req.CID)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	defer acct.Wipe()

	unlock := h.accounts.Lock(acct.Address)
	res, err := h.custody.RequestTransfer(ctx, acct, req.BLID.BigInt(), to)
	unlock()
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	event := events.NewCustodyEvent(events.EventTransferRequested, req.BLID.String(), req.CID, acct.Address.Hex(), res.TxHash.Hex(), res.BlockNumber)
	event.To = to.Hex()
	h.publish(ctx, event)

	api.RespondWithJSONPayload(w, http.StatusOK, api.ResultResponse{
		Result: res.Success,
		TxHash: res.TxHash.Hex(),
		Status: api.StatusSuccess,
	})
}

// HandleApprove godoc
//
//	@Summary		Approve a transfer
//	@Description	Accepts a pending transfer to the wallet of the cid.
//	@Description
//	@Description	signed_bl must be the document signed by the current owner. The server checks the proof,
//	@Description	re-signs the document with the recipient's wallet and records the hash of the re-signed document.
//	@Description	The re-signed document is returned as signed_signed_bl and is the current version of the B/L.
//	@Tags			B/L
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.ApproveRequest		true	"cid, token id and signed B/L"
//	@Success		200		{object}	api.ApproveResponse		"Transfer accepted"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure		404		{object}	api.ErrorResponse		"Unknown CID or B/L"
//	@Failure		409		{object}	api.ErrorResponse		"Transaction rejected (e.g. caller is not the requested recipient)"
//	@Failure		422		{object}	api.ErrorResponse		"Document not signed by the current owner"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Failure		504		{object}	api.ErrorResponse		"Ledger timeout"
//	@Router			/v1/bl/approve [post]
func (h *BLHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ApproveRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := requireCIDAndToken(req.CID, req.BLID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	signedDoc, err := api.ParseDocumentField("signed_bl", req.SignedBL)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	acct, err := h.account(ctx, req.CID)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	defer acct.Wipe()

	signer, err := bl.NewSigner(h.schema, acct.PrivateKey, h.chainID)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	unlock := h.accounts.Lock(acct.Address)
	res, err := h.custody.AcceptSignedTransfer(ctx, acct, signer, req.BLID.BigInt(), signedDoc)
	unlock()
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	event := events.NewCustodyEvent(events.EventTransferAccepted, req.BLID.String(), req.CID, acct.Address.Hex(), res.TxHash.Hex(), res.BlockNumber)
	event.DocumentHash = res.Hash
	h.publish(ctx, event)

	api.RespondWithJSONPayload(w, http.StatusOK, api.ApproveResponse{
		Result:         res.Success,
		SignedSignedBL: res.Document,
		TxHash:         res.TxHash.Hex(),
		Status:         api.StatusSuccess,
	})
}

// HandleVerify godoc
//
//	@Summary		Verify a B/L
//	@Description	Checks signed_bl was signed by the current owner and is the version recorded on the ledger.
//	@Description	result is false when the document is correctly signed but has been superseded.
//	@Tags			B/L
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.VerifyRequest		true	"cid, token id and signed B/L"
//	@Success		200		{object}	api.ResultResponse		"Verification result"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure		404		{object}	api.ErrorResponse		"Unknown CID or B/L"
//	@Failure		422		{object}	api.ErrorResponse		"Document not signed by the current owner"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Router			/v1/bl/verify [post]
func (h *BLHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VerifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := requireCIDAndToken(req.CID, req.BLID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	signedDoc, err := api.ParseDocumentField("signed_bl", req.SignedBL)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	// the caller must be a registered customer, but no key is needed for a read
	if _, err := h.wallets.GetWallet(ctx, req.CID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	ok, err := h.custody.VerifySignedDocument(ctx, req.BLID.BigInt(), signedDoc)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, api.ResultResponse{
		Result: ok,
		Status: api.StatusSuccess,
	})
}

// HandleDetail godoc
//
//	@Summary		Get B/L detail
//	@Description	Returns the ledger state of the B/L: current hash, owner, ownership history and terminal flags.
//	@Tags			B/L
//	@Produce		json
//	@Param			bl_id	query		integer					true	"token id"
//	@Success		200		{object}	api.DetailResponse		"B/L detail"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid token id"
//	@Failure		404		{object}	api.ErrorResponse		"B/L not found"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Router			/v1/bl/detail [get]
func (h *BLHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseBLID(r.URL.Query().Get("bl_id"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	token, err := h.custody.Detail(r.Context(), id.BigInt())
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	history := make([]string, 0, len(token.OwnershipHistory))
	for _, owner := range token.OwnershipHistory {
		history = append(history, owner.Hex())
	}

	api.RespondWithJSONPayload(w, http.StatusOK, api.DetailResponse{
		BLHash:           token.Hash,
		Owner:            token.Owner.Hex(),
		OwnershipHistory: history,
		Invalidate:       token.Invalidated,
		Used:             token.Used,
		Status:           api.StatusSuccess,
	})
}

// HandleDeactivate godoc
//
//	@Summary		Invalidate a B/L
//	@Description	Marks the B/L invalidated. This is terminal: no further transfers are possible.
//	@Tags			B/L
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.TokenRequest		true	"cid and token id"
//	@Success		200		{object}	api.ResultResponse		"B/L invalidated"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure		404		{object}	api.ErrorResponse		"Unknown CID or B/L"
//	@Failure		409		{object}	api.ErrorResponse		"Transaction rejected"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Failure		504		{object}	api.ErrorResponse		"Ledger timeout"
//	@Router			/v1/bl/deactivate [post]
func (h *BLHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.handleTerminal(w, r, events.EventInvalidated, h.custody.Invalidate)
}

// HandleUse godoc
//
//	@Summary		Mark a B/L used
//	@Description	Marks the B/L used (e.g. the cargo has been released). This is terminal.
//	@Tags			B/L
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.TokenRequest		true	"cid and token id"
//	@Success		200		{object}	api.ResultResponse		"B/L used"
//	@Failure		400		{object}	api.ErrorResponse		"Invalid request"
//	@Failure		404		{object}	api.ErrorResponse		"Unknown CID or B/L"
//	@Failure		409		{object}	api.ErrorResponse		"Transaction rejected"
//	@Failure		502		{object}	api.ErrorResponse		"Ledger unavailable"
//	@Failure		504		{object}	api.ErrorResponse		"Ledger timeout"
//	@Router			/v1/bl/use [post]
func (h *BLHandler) HandleUse(w http.ResponseWriter, r *http.Request) {
	h.handleTerminal(w, r, events.EventUsed, h.custody.Use)
}

type terminalOp func(ctx context.Context, acct ledger.Account, tokenID *big.Int) (*custody.TxResult, error)

func (h *BLHandler) handleTerminal(w http.ResponseWriter, r *http.Request, eventType events.EventType, op terminalOp) {
	ctx := r.Context()

	var req api.TokenRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := requireCIDAndToken(req.CID, req.BLID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	acct, err := h.account(ctx, req.CID)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	defer acct.Wipe()

	unlock := h.accounts.Lock(acct.Address)
	res, err := op(ctx, acct, req.BLID.BigInt())
	unlock()
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	h.publish(ctx, events.NewCustodyEvent(eventType, req.BLID.String(), req.CID, acct.Address.Hex(), res.TxHash.Hex(), res.BlockNumber))

	api.RespondWithJSONPayload(w, http.StatusOK, api.ResultResponse{
		Result: res.Success,
		TxHash: res.TxHash.Hex(),
		Status: api.StatusSuccess,
	})
}

// account resolves the cid to its ledger account. The caller must Wipe the account.
func (h *BLHandler) account(ctx context.Context, cid string) (ledger.Account, error) {
	w, err := h.wallets.GetWallet(ctx, cid)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return ledger.Account{}, err
		}
		return ledger.Account{}, api.WrapInternalError(err, "failed to load wallet")
	}
	acct, err := w.Account()
	if err != nil {
		// a stored key that does not parse is a provisioning fault, not a client error
		return ledger.Account{}, api.WrapInternalError(err, "stored wallet is not usable")
	}
	logger.ContextWithLogAttrs(ctx, slog.String("account", acct.Address.Hex()))
	return acct, nil
}

// publish sends the audit event. Failures are logged and otherwise ignored.
func (h *BLHandler) publish(ctx context.Context, event events.CustodyEvent) {
	if err := h.events.Publish(ctx, event); err != nil {
		logger.ContextRequestLogger(ctx).Warn("failed to publish custody event",
			slog.String("event_type", string(event.Type)),
			slog.String("token_id", event.TokenID),
			slog.String("tx_hash", event.TxHash),
			slog.String("error", err.Error()),
		)
	}
}

// decodeRequest decodes the JSON body into req. On failure the error response has been sent.
func decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			api.RespondWithErrorResponse(w, r, api.NewRequestTooLargeError("request body too large"))
			return false
		}
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to decode request JSON"))
		return false
	}
	return true
}

func requireCID(cid string) error {
	if strings.TrimSpace(cid) == "" {
		return api.NewMalformedRequestError("cid is required")
	}
	return nil
}

func requireCIDAndToken(cid string, id api.BLID) error {
	if err := requireCID(cid); err != nil {
		return err
	}
	if !id.IsSet() {
		return api.NewMalformedRequestError("bl_id is required")
	}
	return nil
}
