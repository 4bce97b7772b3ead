package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"stakeledger/native/staking"
	"stakeledger/observability"
)

type stakeParams struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
	Nonce  uint64 `json:"nonce"`
}

type ownerParams struct {
	Owner string `json:"owner"`
	Nonce uint64 `json:"nonce"`
}

type adminAmountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Nonce  uint64 `json:"nonce"`
}

type adminParams struct {
	Caller string `json:"caller"`
	Nonce  uint64 `json:"nonce"`
}

type initializeParams struct {
	Authority string `json:"authority"`
}

type poolResult struct {
	Authority          string `json:"authority"`
	TotalStaked        string `json:"totalStaked"`
	TotalWeightedStake string `json:"totalWeightedStake"`
	VaultStake         string `json:"vaultStakeBalance"`
	VaultSolRewards    string `json:"vaultSolRewardBalance"`
	VaultSplRewards    string `json:"vaultSplRewardBalance"`
	DistributionActive bool   `json:"distributionActive"`
	DistributionEnded  bool   `json:"distributionEnded"`
	CurrentEpoch       uint64 `json:"currentEpoch"`
	EpochStartTime     int64  `json:"epochStartTime"`
	SequenceNumber     uint64 `json:"sequenceNumber"`
}

type userStakeResult struct {
	Owner            string `json:"owner"`
	Principal        string `json:"principal"`
	StakeTimestamp   int64  `json:"stakeTimestamp"`
	WeightedStake    string `json:"weightedStake"`
	IsActive         bool   `json:"isActive"`
	AccruedPenalty   string `json:"accruedPenalty"`
	ClaimableSol     string `json:"claimableSolRewards"`
	ClaimableSpl     string `json:"claimableSplRewards"`
	LastEpochClaimed uint64 `json:"lastEpochClaimed"`
}

type stakeResult struct {
	Principal      string `json:"principal"`
	WeightedStake  string `json:"weightedStake"`
	StakeTimestamp int64  `json:"stakeTimestamp"`
	Sequence       uint64 `json:"sequence"`
	Ref            string `json:"ref"`
}

type unstakeResult struct {
	Payout        string `json:"payout"`
	Fee           string `json:"fee"`
	ForfeitedSol  string `json:"forfeitedSol"`
	ForfeitedSpl  string `json:"forfeitedSpl"`
	Principal     string `json:"principal"`
	WeightedStake string `json:"weightedStake"`
	Sequence      uint64 `json:"sequence"`
	Ref           string `json:"ref"`
}

type claimResult struct {
	Sol      string `json:"sol"`
	Spl      string `json:"spl"`
	Epoch    uint64 `json:"epoch"`
	Sequence uint64 `json:"sequence"`
	Ref      string `json:"ref"`
}

type epochResult struct {
	Epoch     uint64 `json:"epoch"`
	SolBudget string `json:"solBudget"`
	SolPaid   string `json:"solPaid"`
	SplBudget string `json:"splBudget"`
	SplPaid   string `json:"splPaid"`
	Stakers   int    `json:"stakers"`
	Sequence  uint64 `json:"sequence"`
}

type sequenceResult struct {
	Sequence uint64 `json:"sequence"`
}

func parseAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid address")
	}
	return common.HexToAddress(trimmed), nil
}

func refHex(ref [32]byte) string {
	return "0x" + hex.EncodeToString(ref[:])
}

// decodeSingleParam enforces the convention of exactly one parameter object
// per request.
func decodeSingleParam(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func parseDisplayAmount(w http.ResponseWriter, req *RPCRequest, raw string) (*big.Int, bool) {
	amount, err := staking.ParseAmount(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount", nil)
		return nil, false
	}
	return amount, true
}

func errReason(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "staking: ")
}

func poolToResult(pool *staking.StakingPool) poolResult {
	return poolResult{
		Authority:          common.Address(pool.Authority).Hex(),
		TotalStaked:        staking.FormatAmount(pool.TotalStaked),
		TotalWeightedStake: staking.FormatAmount(pool.TotalWeightedStake),
		VaultStake:         staking.FormatAmount(pool.VaultStakeBalance),
		VaultSolRewards:    staking.FormatAmount(pool.VaultSolRewardBalance),
		VaultSplRewards:    staking.FormatAmount(pool.VaultSplRewardBalance),
		DistributionActive: pool.DistributionActive,
		DistributionEnded:  pool.DistributionEnded,
		CurrentEpoch:       pool.CurrentEpoch,
		EpochStartTime:     pool.EpochStartTime,
		SequenceNumber:     pool.SequenceNumber,
	}
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	pool, err := s.engine.Pool()
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolToResult(pool))
}

func (s *Server) handleGetUserStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params ownerParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", nil)
		return
	}
	account, err := s.engine.UserStake(owner)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, userStakeResult{
		Owner:            common.Address(account.Owner).Hex(),
		Principal:        staking.FormatAmount(account.Principal),
		StakeTimestamp:   account.StakeTimestamp,
		WeightedStake:    staking.FormatAmount(account.WeightedStake),
		IsActive:         account.IsActive,
		AccruedPenalty:   staking.FormatAmount(account.AccruedPenalty),
		ClaimableSol:     staking.FormatAmount(account.ClaimableSolRewards),
		ClaimableSpl:     staking.FormatAmount(account.ClaimableSplRewards),
		LastEpochClaimed: account.LastEpochClaimed,
	})
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", nil)
		return
	}
	amount, ok := parseDisplayAmount(w, req, params.Amount)
	if !ok {
		return
	}
	start := time.Now()
	receipt, err := s.engine.Stake(owner, amount, params.Nonce)
	observability.Ledger().Observe("stake", start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeResult{
		Principal:      staking.FormatAmount(receipt.Principal),
		WeightedStake:  staking.FormatAmount(receipt.WeightedStake),
		StakeTimestamp: receipt.StakeTimestamp,
		Sequence:       receipt.Sequence,
		Ref:            refHex(receipt.Ref),
	})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", nil)
		return
	}
	amount, ok := parseDisplayAmount(w, req, params.Amount)
	if !ok {
		return
	}
	start := time.Now()
	receipt, err := s.engine.Unstake(owner, amount, params.Nonce)
	observability.Ledger().Observe("unstake", start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, unstakeResult{
		Payout:        staking.FormatAmount(receipt.Payout),
		Fee:           staking.FormatAmount(receipt.Fee),
		ForfeitedSol:  staking.FormatAmount(receipt.ForfeitedSol),
		ForfeitedSpl:  staking.FormatAmount(receipt.ForfeitedSpl),
		Principal:     staking.FormatAmount(receipt.Principal),
		WeightedStake: staking.FormatAmount(receipt.WeightedStake),
		Sequence:      receipt.Sequence,
		Ref:           refHex(receipt.Ref),
	})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params ownerParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", nil)
		return
	}
	start := time.Now()
	receipt, err := s.engine.ClaimRewards(owner, params.Nonce)
	observability.Ledger().Observe("claimRewards", start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, claimResult{
		Sol:      staking.FormatAmount(receipt.Sol),
		Spl:      staking.FormatAmount(receipt.Spl),
		Epoch:    receipt.Epoch,
		Sequence: receipt.Sequence,
		Ref:      refHex(receipt.Ref),
	})
}

func (s *Server) handleInitializePool(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params initializeParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	authority, err := parseAddress(params.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid authority address", nil)
		return
	}
	start := time.Now()
	pool, err := s.engine.InitializePool(authority)
	observability.Ledger().Observe("initializePool", start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, poolToResult(pool))
}

func (s *Server) adminToggle(w http.ResponseWriter, r *http.Request, req *RPCRequest, op string, fn func([20]byte, uint64) error) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params adminParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", nil)
		return
	}
	start := time.Now()
	err = fn(caller, params.Nonce)
	observability.Ledger().Observe(op, start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, sequenceResult{Sequence: params.Nonce + 1})
}

func (s *Server) handleStartDistribution(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminToggle(w, r, req, "startDistribution", s.engine.StartDistribution)
}

func (s *Server) handleStopDistribution(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminToggle(w, r, req, "stopDistribution", s.engine.StopDistribution)
}

func (s *Server) handleEndDistribution(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminToggle(w, r, req, "endDistribution", s.engine.EndDistribution)
}

func (s *Server) adminAmountOp(w http.ResponseWriter, r *http.Request, req *RPCRequest, op string, fn func([20]byte, *big.Int, uint64) error) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params adminAmountParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", nil)
		return
	}
	amount, ok := parseDisplayAmount(w, req, params.Amount)
	if !ok {
		return
	}
	start := time.Now()
	err = fn(caller, amount, params.Nonce)
	observability.Ledger().Observe(op, start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, sequenceResult{Sequence: params.Nonce + 1})
}

func (s *Server) handleDepositSolRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminAmountOp(w, r, req, "depositSolRewards", s.engine.DepositSolRewards)
}

func (s *Server) handleDepositSplRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminAmountOp(w, r, req, "depositSplRewards", s.engine.DepositSplRewards)
}

func (s *Server) handleCloseEpoch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params adminParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", nil)
		return
	}
	start := time.Now()
	receipt, err := s.engine.CloseEpoch(caller, params.Nonce)
	observability.Ledger().Observe("closeEpoch", start, errReason(err))
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, epochResult{
		Epoch:     receipt.Epoch,
		SolBudget: staking.FormatAmount(receipt.SolBudget),
		SolPaid:   staking.FormatAmount(receipt.SolPaid),
		SplBudget: staking.FormatAmount(receipt.SplBudget),
		SplPaid:   staking.FormatAmount(receipt.SplPaid),
		Stakers:   receipt.Stakers,
		Sequence:  receipt.Sequence,
	})
}

func (s *Server) handleAdminWithdrawSol(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminAmountOp(w, r, req, "adminWithdrawSol", s.engine.AdminWithdrawSol)
}

func (s *Server) handleAdminWithdrawSpl(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminAmountOp(w, r, req, "adminWithdrawSpl", s.engine.AdminWithdrawSpl)
}

func (s *Server) handleAdminWithdrawStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.adminAmountOp(w, r, req, "adminWithdrawStake", s.engine.AdminWithdrawStakeTokens)
}
