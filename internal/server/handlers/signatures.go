package handlers

// signatures.go implements POST /v1/signatures/verify

import (
	"errors"
	"net/http"

	"github.com/information-sharing-networks/bl-custody/internal/api"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
)

// SignatureHandler checks document proofs against a customer's wallet without touching the ledger
type SignatureHandler struct {
	wallets wallet.Provider
	schema  *crypto.TypedDataSchema
}

func NewSignatureHandler(wallets wallet.Provider, schema *crypto.TypedDataSchema) *SignatureHandler {
	if schema == nil {
		schema = bl.DefaultSchema
	}
	return &SignatureHandler{wallets: wallets, schema: schema}
}

// HandleVerifySignature godoc
//
//	@Summary		Verify a document signature
//	@Description	Reports whether the proof on the signed document was made by the wallet of the cid.
//	@Description	The ledger is not consulted.
//	@Tags			Signatures
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.SignatureVerifyRequest	true	"cid and signed document"
//	@Success		200		{object}	api.SignatureVerifyResponse	"Verification result"
//	@Failure		400		{object}	api.ErrorResponse			"Invalid request or unsigned document"
//	@Failure		404		{object}	api.ErrorResponse			"Unknown CID"
//	@Router			/v1/signatures/verify [post]
func (h *SignatureHandler) HandleVerifySignature(w http.ResponseWriter, r *http.Request) {
	var req api.SignatureVerifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := requireCID(req.CID); err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	doc, err := api.ParseDocumentField("signature", req.Signature)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	if !doc.IsSigned() {
		api.RespondWithErrorResponse(w, r, api.NewMalformedRequestError("signature does not include a proof"))
		return
	}

	wlt, err := h.wallets.GetWallet(r.Context(), req.CID)
	if err != nil {
		if !errors.Is(err, wallet.ErrWalletNotFound) {
			err = api.WrapInternalError(err, "failed to load wallet")
		}
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	ok, err := bl.VerifySigned(h.schema, wlt.Address, doc)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, api.SignatureVerifyResponse{
		IsValid: ok,
		Status:  api.StatusSuccess,
	})
}
