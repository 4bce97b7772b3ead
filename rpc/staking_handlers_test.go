package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"stakeledger/core/state"
	"stakeledger/native/staking"
	"stakeledger/storage"
)

const (
	testToken     = "test-admin-token"
	testAuthority = "0x00000000000000000000000000000000000000Aa"
	testOwner     = "0x0000000000000000000000000000000000000001"
)

type testEnv struct {
	server *Server
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	engine := staking.NewEngine()
	engine.SetState(state.NewManager(db))
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	server := NewServer(engine)
	server.SetAuthToken(testToken)
	return &testEnv{server: server, router: server.Router()}
}

func (env *testEnv) post(t *testing.T, method string, params interface{}, token string) (*httptest.ResponseRecorder, *RPCResponse) {
	t.Helper()
	req := RPCRequest{JSONRPC: jsonRPCVersion, Method: method, ID: 1}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		req.Params = []json.RawMessage{raw}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, httpReq)
	resp := new(RPCResponse)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), resp))
	return recorder, resp
}

func decodeResult(t *testing.T, resp *RPCResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func (env *testEnv) initPool(t *testing.T) {
	t.Helper()
	_, resp := env.post(t, "staking_initializePool", map[string]string{"authority": testAuthority}, testToken)
	require.Nil(t, resp.Error)
}

func TestMethodNotFound(t *testing.T) {
	env := newTestEnv(t)
	recorder, resp := env.post(t, "staking_unknown", nil, "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestAdminMethodsRequireBearerToken(t *testing.T) {
	env := newTestEnv(t)
	recorder, resp := env.post(t, "staking_initializePool", map[string]string{"authority": testAuthority}, "")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	recorder, resp = env.post(t, "staking_initializePool", map[string]string{"authority": testAuthority}, "wrong-token")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.NotNil(t, resp.Error)
}

func TestStakeAndGetUserStake(t *testing.T) {
	env := newTestEnv(t)
	env.initPool(t)

	_, resp := env.post(t, "staking_stake", map[string]interface{}{
		"owner":  testOwner,
		"amount": "100",
		"nonce":  0,
	}, "")
	require.Nil(t, resp.Error)
	var staked stakeResult
	decodeResult(t, resp, &staked)
	require.Equal(t, "100", staked.Principal)
	require.Equal(t, uint64(1), staked.Sequence)
	require.NotEmpty(t, staked.Ref)

	_, resp = env.post(t, "staking_getUserStake", map[string]string{"owner": testOwner}, "")
	require.Nil(t, resp.Error)
	var position userStakeResult
	decodeResult(t, resp, &position)
	require.Equal(t, "100", position.Principal)
	require.True(t, position.IsActive)
}

func TestStakeInvalidAmountRejected(t *testing.T) {
	env := newTestEnv(t)
	env.initPool(t)

	recorder, resp := env.post(t, "staking_stake", map[string]interface{}{
		"owner":  testOwner,
		"amount": "not-a-number",
		"nonce":  0,
	}, "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestReplayedStakeRejected(t *testing.T) {
	env := newTestEnv(t)
	env.initPool(t)

	params := map[string]interface{}{"owner": testOwner, "amount": "10", "nonce": 0}
	_, resp := env.post(t, "staking_stake", params, "")
	require.Nil(t, resp.Error)

	recorder, resp := env.post(t, "staking_stake", params, "")
	require.Equal(t, http.StatusConflict, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLedgerError, resp.Error.Code)
}

func TestGetPoolReflectsDistributionState(t *testing.T) {
	env := newTestEnv(t)
	env.initPool(t)

	_, resp := env.post(t, "staking_startDistribution", map[string]interface{}{
		"caller": testAuthority,
		"nonce":  0,
	}, testToken)
	require.Nil(t, resp.Error)

	_, resp = env.post(t, "staking_getPool", nil, "")
	require.Nil(t, resp.Error)
	var pool poolResult
	decodeResult(t, resp, &pool)
	require.True(t, pool.DistributionActive)
	require.Equal(t, uint64(1), pool.SequenceNumber)
}

func TestAdminWithdrawBeyondVaultRejected(t *testing.T) {
	env := newTestEnv(t)
	env.initPool(t)

	recorder, resp := env.post(t, "staking_adminWithdrawSol", map[string]interface{}{
		"caller": testAuthority,
		"amount": "1",
		"nonce":  0,
	}, testToken)
	require.Equal(t, http.StatusConflict, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLedgerError, resp.Error.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
}
