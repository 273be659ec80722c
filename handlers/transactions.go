// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollchain/chain"
	"github.com/danielhkuo/pollchain/middleware"
	"github.com/danielhkuo/pollchain/models"
)

type TxHandler struct {
	chain *chain.Chain
}

func NewTxHandler(c *chain.Chain) *TxHandler {
	return &TxHandler{chain: c}
}

// SubmitTx handles POST /tx
// Queues a signed transaction for the next block. The contract rules run at
// mining time, so a 202 only means the signature checked out.
func (h *TxHandler) SubmitTx(w http.ResponseWriter, r *http.Request) {
	var stx models.SignedTx
	if err := middleware.ParseJSONBody(r, &stx); err != nil {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, "Invalid JSON", models.ReasonMalformedTx)
		return
	}

	hash, err := h.chain.Submit(r.Context(), stx)
	switch {
	case errors.Is(err, chain.ErrBadSignature):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, err.Error(), models.ReasonBadSignature)
		return
	case errors.Is(err, chain.ErrUnknownKind):
		middleware.CodedErrorResponse(w, http.StatusBadRequest, err.Error(), models.ReasonMalformedTx)
		return
	case err != nil:
		slog.Error("failed to submit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit transaction")
		return
	}

	middleware.JSONResponse(w, http.StatusAccepted, models.SubmitTxResponse{TxHash: hash})
}

// GetTx handles GET /tx/{hash}
func (h *TxHandler) GetTx(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	if hash == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "hash is required")
		return
	}

	receipt, err := h.chain.Receipt(r.Context(), hash)
	if errors.Is(err, chain.ErrTxNotFound) {
		// No code: the transaction may still be on its way.
		middleware.ErrorResponse(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		slog.Error("failed to query receipt", "tx_hash", hash, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, receipt)
}
