package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerc-io/airdrop-trie-service/pkg/audit"
	"github.com/cerc-io/airdrop-trie-service/pkg/committer"
	"github.com/cerc-io/airdrop-trie-service/pkg/coordinator"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/fetcher"
	"github.com/cerc-io/airdrop-trie-service/pkg/registry"
	"github.com/cerc-io/airdrop-trie-service/pkg/store"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

func newTestServer() (*Server, store.TrieStore, committer.Committer) {
	trieStore := store.NewMemoryStore()
	c := committer.NewInMemoryCommitter()
	auditLog := audit.NewMemoryLog()
	coord := coordinator.New(registry.New(), trieStore, c, auditLog,
		coordinator.OrderingDefault{Ordering: trie.SortByLeafBytes, EncMode: encoding.BinaryAddress})
	return New(coord, trieStore, c, auditLog, fetcher.New(5*time.Second), true), trieStore, c
}

func TestUploadJSONEligibilityThenVerify(t *testing.T) {
	s, _, _ := newTestServer()
	h := s.Handler()

	body := `{"eligibility": {"0x1111111111111111111111111111111111111111": "100"}}`
	req := httptest.NewRequest(http.MethodPost, "/upload-json-eligibility/1", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var ingestResp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ingestResp))
	assert.EqualValues(t, 1, ingestResp["entry_count"])

	verifyBody := `{"round_id": 1, "address": "0x1111111111111111111111111111111111111111", "amount": "100"}`
	verifyReq := httptest.NewRequest(http.MethodPost, "/verify-eligibility", bytes.NewBufferString(verifyBody))
	verifyRec := httptest.NewRecorder()
	h.ServeHTTP(verifyRec, verifyReq)
	require.Equal(t, http.StatusOK, verifyRec.Code)

	var verifyResp map[string]interface{}
	require.NoError(t, json.Unmarshal(verifyRec.Body.Bytes(), &verifyResp))
	assert.Equal(t, true, verifyResp["is_eligible"])
}

func TestGetEligibilityReturnsStoredAmount(t *testing.T) {
	s, _, _ := newTestServer()
	h := s.Handler()

	body := `{"eligibility": {"0x2222222222222222222222222222222222222222": "250"}}`
	req := httptest.NewRequest(http.MethodPost, "/upload-json-eligibility/5", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/get-eligibility/5/0x2222222222222222222222222222222222222222", nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &resp))
	assert.Equal(t, "250", resp["amount"])
}

func TestGetEligibilityNotFoundForMissingRound(t *testing.T) {
	s, _, _ := newTestServer()
	h := s.Handler()

	getReq := httptest.NewRequest(http.MethodGet, "/get-eligibility/999/0x2222222222222222222222222222222222222222", nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestDeleteRound(t *testing.T) {
	s, trieStore, _ := newTestServer()
	h := s.Handler()

	body := `{"eligibility": {"0x3333333333333333333333333333333333333333": "1"}}`
	req := httptest.NewRequest(http.MethodPost, "/upload-json-eligibility/9", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	delReq := httptest.NewRequest(http.MethodDelete, "/rounds/9", nil)
	delRec := httptest.NewRecorder()
	h.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusOK, delRec.Code)

	_, err := trieStore.GetRound(req.Context(), 9)
	assert.Error(t, err)
}
