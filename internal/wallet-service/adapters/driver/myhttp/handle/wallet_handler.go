package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gride/internal/auth"
	"gride/internal/mylogger"
	"gride/internal/wallet-service/core/domain/dto"
	"gride/internal/wallet-service/core/myerrors"
	"gride/internal/wallet-service/core/ports"
	"gride/internal/wallet-service/core/services"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 16

type WalletHandler struct {
	walletService ports.IWalletService
	log           mylogger.Logger
	validate      *validator.Validate
}

func NewWalletHandler(ws ports.IWalletService, log mylogger.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: ws,
		log:           log,
		validate:      validator.New(),
	}
}

func (wh *WalletHandler) GetWallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}

		res, err := wh.walletService.GetOverview(r.Context(), owner)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (wh *WalletHandler) ListTransactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		limit, offset, err := pageParams(r)
		if err != nil {
			jsonError(w, err)
			return
		}

		res, err := wh.walletService.ListTransactions(r.Context(), owner, limit, offset)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]interface{}{"transactions": res})
	}
}

func (wh *WalletHandler) ListTransfers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}
		limit, offset, err := pageParams(r)
		if err != nil {
			jsonError(w, err)
			return
		}

		res, err := wh.walletService.ListTransfers(r.Context(), owner, limit, offset)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]interface{}{"transfers": res})
	}
}

func (wh *WalletHandler) RequestPayout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}

		req := dto.PayoutRequestDto{}
		if err := wh.decode(w, r, &req); err != nil {
			jsonError(w, err)
			return
		}

		res, err := wh.walletService.RequestPayout(r.Context(), owner, req.Amount, req.Method, req.Note)
		if err != nil {
			payoutsTotal.WithLabelValues(resultLabel(err)).Inc()
			jsonError(w, err)
			return
		}
		payoutsTotal.WithLabelValues("ok").Inc()
		jsonResponse(w, http.StatusCreated, res)
	}
}

func (wh *WalletHandler) SendMoney() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}

		req := dto.SendMoneyRequestDto{}
		if err := wh.decode(w, r, &req); err != nil {
			jsonError(w, err)
			return
		}

		res, err := wh.walletService.SendMoney(r.Context(), owner, strings.TrimSpace(req.Address()), req.Amount, req.Note)
		if err != nil {
			transfersTotal.WithLabelValues(resultLabel(err)).Inc()
			jsonError(w, err)
			return
		}
		transfersTotal.WithLabelValues("ok").Inc()
		jsonResponse(w, http.StatusCreated, res)
	}
}

func (wh *WalletHandler) GetReceiveInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := ownerID(w, r)
		if !ok {
			return
		}

		res, err := wh.walletService.GetReceiveInfo(r.Context(), owner)
		if err != nil {
			jsonError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

// ApplyAdjustment is the admin credit/debit of a driver's wallet.
func (wh *WalletHandler) ApplyAdjustment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := mux.Vars(r)["driver_id"]
		if driverID == "" {
			jsonError(w, myerrors.Validation("driver_id is required"))
			return
		}

		req := dto.AdjustmentRequestDto{}
		if err := wh.decode(w, r, &req); err != nil {
			jsonError(w, err)
			return
		}

		res, err := wh.walletService.ApplyAdjustment(r.Context(), driverID, req.Amount, req.Description)
		if err != nil {
			jsonError(w, err)
			return
		}

		admin, _ := auth.IdentityFrom(r.Context())
		wh.log.Action("ApplyAdjustment").Info("wallet adjusted by admin",
			"admin_id", admin.SubjectID, "driver_id", driverID, "amount", req.Amount.String())
		jsonResponse(w, http.StatusCreated, res)
	}
}

func (wh *WalletHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return myerrors.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := wh.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return myerrors.Validation(fmt.Sprintf("field %s failed on %s", verrs[0].Field(), verrs[0].Tag()))
		}
		return myerrors.Validation(err.Error())
	}
	return nil
}

func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok || id.SubjectID == "" {
		jsonError(w, myerrors.ErrUnauthorized)
		return "", false
	}
	return id.SubjectID, true
}

func pageParams(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit", services.DefaultPageLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func resultLabel(err error) string {
	return string(myerrors.KindOf(err))
}
