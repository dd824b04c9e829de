package rpc

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"

	"nftloans/core/state"
	"nftloans/native/loans"
	"nftloans/rpc/modules"
)

type initializeParams struct {
	Token  string `json:"token"`
	FeeBps uint32 `json:"feeBps"`
}

type createOrderParams struct {
	Token                string   `json:"token"`
	Borrower             string   `json:"borrower"`
	Asset                string   `json:"asset"`
	Principal            *big.Int `json:"principal"`
	Interest             *big.Int `json:"interest"`
	PeriodSeconds        uint64   `json:"periodSeconds"`
	AdditionalCollateral *big.Int `json:"additionalCollateral"`
}

type orderActionParams struct {
	Token  string `json:"token"`
	Seq    uint64 `json:"seq"`
	Caller string `json:"caller"`
}

type getMarketParams struct {
	Token string `json:"token"`
}

type getOrderParams struct {
	Token string `json:"token"`
	Seq   uint64 `json:"seq"`
}

type getBalanceParams struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type marketResult struct {
	Token             string   `json:"token"`
	BufferVault       string   `json:"bufferVault"`
	NextOrderSeq      uint64   `json:"nextOrderSeq"`
	TotalLockedBuffer *big.Int `json:"totalLockedBuffer"`
	FeeBps            uint32   `json:"feeBps"`
}

type orderResult struct {
	Seq                  uint64   `json:"seq"`
	Token                string   `json:"token"`
	Borrower             string   `json:"borrower"`
	Lender               string   `json:"lender,omitempty"`
	Collateral           string   `json:"collateral"`
	CollateralVault      string   `json:"collateralVault"`
	BufferVault          string   `json:"bufferVault"`
	Principal            *big.Int `json:"principal"`
	Interest             *big.Int `json:"interest"`
	PeriodSeconds        uint64   `json:"periodSeconds"`
	AdditionalCollateral *big.Int `json:"additionalCollateral"`
	CreatedAt            int64    `json:"createdAt"`
	FundedAt             int64    `json:"fundedAt,omitempty"`
	RepaidAt             int64    `json:"repaidAt,omitempty"`
	LiquidatedAt         int64    `json:"liquidatedAt,omitempty"`
	Status               string   `json:"status"`
}

type balanceResult struct {
	Address      string   `json:"address"`
	Token        string   `json:"token"`
	Balance      *big.Int `json:"balance"`
	Collectibles []string `json:"collectibles,omitempty"`
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return errExpectedSingleParam
	}
	return json.Unmarshal(req.Params[0], out)
}

var errExpectedSingleParam = jsonError("expected a single parameter object")

type jsonError string

func (e jsonError) Error() string { return string(e) }

func (s *Server) invalidParams(w http.ResponseWriter, id interface{}, msg string) *RPCError {
	rpcErr := &RPCError{Code: codeInvalidParams, Message: msg}
	writeError(w, http.StatusBadRequest, id, rpcErr.Code, rpcErr.Message, nil)
	return rpcErr
}

func (s *Server) moduleFailure(w http.ResponseWriter, id interface{}, modErr *modules.ModuleError) *RPCError {
	rpcErr := &RPCError{Code: modErr.Code, Message: modErr.Message, Data: modErr.Data}
	writeError(w, modErr.HTTPStatus, id, modErr.Code, modErr.Message, modErr.Data)
	return rpcErr
}

func formatMarket(m *loans.Market) *marketResult {
	if m == nil {
		return nil
	}
	return &marketResult{
		Token:             m.Token,
		BufferVault:       "0x" + hex.EncodeToString(m.BufferVault[:]),
		NextOrderSeq:      m.NextOrderSeq,
		TotalLockedBuffer: m.TotalLockedBuffer,
		FeeBps:            m.FeeBps,
	}
}

func formatOrder(o *loans.Order) *orderResult {
	if o == nil {
		return nil
	}
	result := &orderResult{
		Seq:                  o.Seq,
		Token:                o.Token,
		Borrower:             "0x" + hex.EncodeToString(o.Borrower[:]),
		Collateral:           "0x" + hex.EncodeToString(o.Collateral[:]),
		CollateralVault:      "0x" + hex.EncodeToString(o.CollateralVault[:]),
		BufferVault:          "0x" + hex.EncodeToString(o.BufferVault[:]),
		Principal:            o.Principal,
		Interest:             o.Interest,
		PeriodSeconds:        o.PeriodSeconds,
		AdditionalCollateral: o.AdditionalCollateral,
		CreatedAt:            o.CreatedAt,
		FundedAt:             o.FundedAt,
		RepaidAt:             o.RepaidAt,
		LiquidatedAt:         o.LiquidatedAt,
		Status:               o.Status.String(),
	}
	if o.Lender != ([20]byte{}) {
		result.Lender = "0x" + hex.EncodeToString(o.Lender[:])
	}
	return result
}

func (s *Server) handleLoansInitialize(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params initializeParams
	if err := decodeParams(req, &params); err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	market, modErr := s.loans.Initialize(params.Token, params.FeeBps)
	if modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	writeResult(w, req.ID, formatMarket(market))
	return nil
}

func (s *Server) handleLoansCreateOrder(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params createOrderParams
	if err := decodeParams(req, &params); err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	borrower, err := state.ParseAddress(params.Borrower)
	if err != nil {
		return s.invalidParams(w, req.ID, "invalid borrower address")
	}
	asset, err := state.ParseAssetID(params.Asset)
	if err != nil {
		return s.invalidParams(w, req.ID, "invalid collateral asset id")
	}
	order, modErr := s.loans.CreateOrder(params.Token, borrower, asset, params.Principal, params.Interest, params.PeriodSeconds, params.AdditionalCollateral)
	if modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	writeResult(w, req.ID, formatOrder(order))
	return nil
}

func (s *Server) orderAction(w http.ResponseWriter, req *RPCRequest, action func(token string, seq uint64, caller [20]byte) *modules.ModuleError) *RPCError {
	var params orderActionParams
	if err := decodeParams(req, &params); err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	caller, err := state.ParseAddress(params.Caller)
	if err != nil {
		return s.invalidParams(w, req.ID, "invalid caller address")
	}
	if modErr := action(params.Token, params.Seq, caller); modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	order, modErr := s.loans.GetOrder(params.Token, params.Seq)
	if modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	writeResult(w, req.ID, formatOrder(order))
	return nil
}

func (s *Server) handleLoansCancelOrder(w http.ResponseWriter, req *RPCRequest) *RPCError {
	return s.orderAction(w, req, s.loans.CancelOrder)
}

func (s *Server) handleLoansFundOrder(w http.ResponseWriter, req *RPCRequest) *RPCError {
	return s.orderAction(w, req, s.loans.FundOrder)
}

func (s *Server) handleLoansRepayOrder(w http.ResponseWriter, req *RPCRequest) *RPCError {
	return s.orderAction(w, req, s.loans.RepayOrder)
}

func (s *Server) handleLoansLiquidateOrder(w http.ResponseWriter, req *RPCRequest) *RPCError {
	return s.orderAction(w, req, s.loans.LiquidateOrder)
}

func (s *Server) handleLoansGetMarket(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params getMarketParams
	if err := decodeParams(req, &params); err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	market, modErr := s.loans.GetMarket(params.Token)
	if modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	writeResult(w, req.ID, formatMarket(market))
	return nil
}

func (s *Server) handleLoansGetOrder(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params getOrderParams
	if err := decodeParams(req, &params); err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	order, modErr := s.loans.GetOrder(params.Token, params.Seq)
	if modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	writeResult(w, req.ID, formatOrder(order))
	return nil
}

func (s *Server) handleLoansGetBalance(w http.ResponseWriter, req *RPCRequest) *RPCError {
	var params getBalanceParams
	if err := decodeParams(req, &params); err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	addr, err := state.ParseAddress(params.Address)
	if err != nil {
		return s.invalidParams(w, req.ID, "invalid address")
	}
	token, err := loans.NormalizeToken(params.Token)
	if err != nil {
		return s.invalidParams(w, req.ID, err.Error())
	}
	account, modErr := s.loans.GetAccount(addr)
	if modErr != nil {
		return s.moduleFailure(w, req.ID, modErr)
	}
	result := &balanceResult{
		Address: params.Address,
		Token:   token,
		Balance: account.Balance(token),
	}
	for _, held := range account.Collectibles {
		result.Collectibles = append(result.Collectibles, "0x"+hex.EncodeToString(held))
	}
	writeResult(w, req.ID, result)
	return nil
}
