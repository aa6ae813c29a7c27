// Package api is the thin HTTP dispatch layer: one http.HandleFunc per
// route, each parsing its request, delegating to the RoundCoordinator (or
// a directly wired TrieStore/Committer/Fetcher for read-only routes), and
// writing a JSON response. Request/response shapes follow the boundary
// convention: EIP-55 addresses, decimal amounts, 0x-prefixed proofs.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/cerc-io/airdrop-trie-service/pkg/apperr"
	"github.com/cerc-io/airdrop-trie-service/pkg/audit"
	"github.com/cerc-io/airdrop-trie-service/pkg/committer"
	"github.com/cerc-io/airdrop-trie-service/pkg/compare"
	"github.com/cerc-io/airdrop-trie-service/pkg/coordinator"
	"github.com/cerc-io/airdrop-trie-service/pkg/encoding"
	"github.com/cerc-io/airdrop-trie-service/pkg/fetcher"
	"github.com/cerc-io/airdrop-trie-service/pkg/prom"
	"github.com/cerc-io/airdrop-trie-service/pkg/store"
	"github.com/cerc-io/airdrop-trie-service/pkg/trie"
)

// Server wires the coordinator, store, committer, audit log, and fetcher
// into an http.Handler.
type Server struct {
	coord     *coordinator.Coordinator
	trieStore store.TrieStore
	committer committer.Committer
	auditLog  audit.Log
	fetcher   *fetcher.Fetcher
	corsAll   bool
}

// New builds a Server. If corsAllowAll is true, every origin is allowed,
// matching the permissive CORS policy the original Rust service ran
// with.
func New(coord *coordinator.Coordinator, trieStore store.TrieStore, c committer.Committer, auditLog audit.Log, f *fetcher.Fetcher, corsAllowAll bool) *Server {
	return &Server{coord: coord, trieStore: trieStore, committer: c, auditLog: auditLog, fetcher: f, corsAll: corsAllowAll}
}

// Handler builds the full mux, wrapped with CORS and prometheus
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/upload-json-eligibility/", s.handleUploadJSONEligibility)
	mux.HandleFunc("/download-trie-data/", s.handleDownloadTrieData)
	mux.HandleFunc("/upload-compare-trie/", s.handleUploadCompareTrie)
	mux.HandleFunc("/fetch-external-data/", s.handleFetchExternalData)
	mux.HandleFunc("/compare-external-trie/", s.handleCompareExternalTrie)
	mux.HandleFunc("/submit-trie/", s.handleSubmitTrie)
	mux.HandleFunc("/trie-info/", s.handleTrieInfo)
	mux.HandleFunc("/rounds/statistics", s.handleRoundsStatistics)
	mux.HandleFunc("/rounds/", s.handleRoundsSubroutes)
	mux.HandleFunc("/processing-logs/", s.handleProcessingLogs)
	mux.HandleFunc("/processing-logs", s.handleProcessingLogs)
	mux.HandleFunc("/verify-eligibility", s.handleVerifyEligibility)
	mux.HandleFunc("/get-eligibility/", s.handleGetEligibility)

	var handler http.Handler = mux
	if s.corsAll {
		handler = cors.AllowAll().Handler(handler)
	}
	return prom.HTTPMiddleware(handler)
}

// --- shared helpers -------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := statusForError(err)
	writeJSON(w, status, map[string]string{"error": body})
}

// statusForError maps the error taxonomy onto the HTTP status codes
// named in the error handling design.
func statusForError(err error) (int, string) {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidAddress, apperr.KindInvalidAmount, apperr.KindDuplicateAddress, apperr.KindMalformedInput:
		return http.StatusBadRequest, err.Error()
	case apperr.KindNotFound:
		return http.StatusNotFound, err.Error()
	case apperr.KindRoundBusy:
		return http.StatusConflict, err.Error()
	case apperr.KindInvalidProof:
		return http.StatusBadRequest, err.Error()
	case apperr.KindStorageUnavailable, apperr.KindStorageCorrupt,
		apperr.KindOnChainTransient, apperr.KindOnChainDefinitive, apperr.KindExternalInvalid:
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func parseRoundID(path, prefix string) (uint32, error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	// allow trailing path segments after the round id (e.g. /rounds/{id}/active)
	if idx := strings.Index(rest, "/"); idx >= 0 {
		rest = rest[:idx]
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindMalformedInput, err, "invalid round_id in path")
	}
	return uint32(id), nil
}

// --- eligibility entries ---------------------------------------------

type eligibilityUploadRequest struct {
	Eligibility map[string]string `json:"eligibility"`
}

func decodeEligibility(m map[string]string) ([]encoding.Entry, error) {
	entries := make([]encoding.Entry, 0, len(m))
	for addrStr, amountStr := range m {
		addr, err := encoding.ParseAddress(addrStr)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidAddress, err, "invalid address "+addrStr)
		}
		amt, err := encoding.ParseAmount(amountStr)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidAmount, err, "invalid amount for "+addrStr)
		}
		entries = append(entries, encoding.Entry{Address: addr, Amount: amt})
	}
	return entries, nil
}

func (s *Server) handleUploadJSONEligibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	roundID, err := parseRoundID(r.URL.Path, "/upload-json-eligibility/")
	if err != nil {
		writeError(w, err)
		return
	}

	var req eligibilityUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "decode request body"))
		return
	}
	entries, err := decodeEligibility(req.Eligibility)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.coord.Ingest(r.Context(), roundID, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"round_id":    res.RoundID,
		"root":        hashHex(res.Root),
		"entry_count": res.EntryCount,
	})
}

func hashHex(h trie.Hash) string { return fmt.Sprintf("0x%x", h) }

// --- trie download -----------------------------------------------------

func (s *Server) handleDownloadTrieData(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseRoundID(r.URL.Path, "/download-trie-data/")
	if err != nil {
		writeError(w, err)
		return
	}
	round, err := s.trieStore.GetRound(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	blob, err := s.trieStore.LoadBlob(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := trie.Unmarshal(blob)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindStorageCorrupt, err, "unmarshal stored trie"))
		return
	}

	type entryWithProof struct {
		Address string   `json:"address"`
		Amount  string   `json:"amount"`
		Proof   []string `json:"proof"`
	}
	entries := make([]entryWithProof, 0, t.Len())
	for _, e := range t.Entries() {
		proof, amount, err := t.ProofFor(e.Address)
		if err != nil {
			writeError(w, err)
			return
		}
		proofHex := make([]string, len(proof))
		for i, p := range proof {
			proofHex[i] = hashHex(p)
		}
		entries = append(entries, entryWithProof{
			Address: encoding.ToChecksum(e.Address),
			Amount:  amount.String(),
			Proof:   proofHex,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"round_id": round.RoundID,
		"root":     hashHex(round.RootHash),
		"entries":  entries,
	})
}

// --- compare -------------------------------------------------------

type compareTrieRequest struct {
	Root    string   `json:"root"`
	Entries []string `json:"entries"` // "address:amount" pairs, kept simple at the boundary
}

func (s *Server) handleUploadCompareTrie(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseRoundID(r.URL.Path, "/upload-compare-trie/")
	if err != nil {
		writeError(w, err)
		return
	}
	var req compareTrieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "decode request body"))
		return
	}

	refEntries := make([]encoding.Entry, 0, len(req.Entries))
	for _, pair := range req.Entries {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			writeError(w, apperr.New(apperr.KindMalformedInput, "entry must be address:amount"))
			return
		}
		addr, err := encoding.ParseAddress(parts[0])
		if err != nil {
			writeError(w, apperr.Wrap(apperr.KindInvalidAddress, err, "invalid address"))
			return
		}
		amt, err := encoding.ParseAmount(parts[1])
		if err != nil {
			writeError(w, apperr.Wrap(apperr.KindInvalidAmount, err, "invalid amount"))
			return
		}
		refEntries = append(refEntries, encoding.Entry{Address: addr, Amount: amt})
	}

	refTrie, err := trie.Build(trie.SortByLeafBytes, encoding.BinaryAddress, refEntries)
	if err != nil {
		writeError(w, err)
		return
	}
	ref := compare.ReferenceFromTrie(refTrie)

	report, err := s.coord.Compare(r.Context(), roundID, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFetchExternalData(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseRoundID(r.URL.Path, "/fetch-external-data/")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "decode request body"))
		return
	}
	entries, err := s.fetcher.FetchEligibility(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.coord.Ingest(r.Context(), roundID, entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"round_id":    res.RoundID,
		"root":        hashHex(res.Root),
		"entry_count": res.EntryCount,
	})
}

func (s *Server) handleCompareExternalTrie(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseRoundID(r.URL.Path, "/compare-external-trie/")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "decode request body"))
		return
	}
	root, entries, err := s.fetcher.FetchTrie(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	entryMap := make(map[string]encoding.Amount, len(entries))
	for _, e := range entries {
		entryMap[encoding.NormalizeLower(e.Address)] = e.Amount
	}
	ref := compare.Reference{Root: root, Entries: entryMap, EncMode: encoding.BinaryAddress}

	report, err := s.coord.Compare(r.Context(), roundID, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- on-chain submission ------------------------------------------------

func (s *Server) handleSubmitTrie(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseRoundID(r.URL.Path, "/submit-trie/")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.coord.Commit(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"round_id":         roundID,
		"transaction_hash": res.TransactionHash,
		"skipped":          res.Skipped,
	})
}

// --- round/trie metadata --------------------------------------------

func (s *Server) handleTrieInfo(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseRoundID(r.URL.Path, "/trie-info/")
	if err != nil {
		writeError(w, err)
		return
	}
	round, err := s.trieStore.GetRound(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roundView(round))
}

func (s *Server) handleRoundsSubroutes(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/rounds/")
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		http.NotFound(w, r)
		return
	}
	roundID64, err := strconv.ParseUint(segments[0], 10, 32)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "invalid round_id in path"))
		return
	}
	roundID := uint32(roundID64)

	if r.Method == http.MethodDelete && len(segments) == 1 {
		if err := s.coord.Delete(r.Context(), roundID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}

	if len(segments) < 2 {
		writeError(w, apperr.New(apperr.KindMalformedInput, "missing rounds sub-route"))
		return
	}

	switch segments[1] {
	case "active":
		round, err := s.trieStore.GetRound(r.Context(), roundID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"active": round.State != store.StateCommitted && round.State != store.StateFailed})
	case "metadata":
		round, err := s.trieStore.GetRound(r.Context(), roundID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roundView(round))
	case "validate-consistency":
		s.handleValidateConsistency(w, r, roundID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleValidateConsistency(w http.ResponseWriter, r *http.Request, roundID uint32) {
	round, err := s.trieStore.GetRound(r.Context(), roundID)
	if err != nil {
		writeError(w, err)
		return
	}
	cons, err := s.committer.ValidateConsistency(r.Context(), roundID, round.RootHash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cons)
}

func (s *Server) handleRoundsStatistics(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.trieStore.ListRounds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats := map[string]int{}
	for _, round := range rounds {
		stats[string(round.State)]++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_rounds": len(rounds),
		"by_state":     stats,
	})
}

func (s *Server) handleProcessingLogs(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/processing-logs")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		recs, err := s.auditLog.All(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
		return
	}
	roundID, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "invalid round_id in path"))
		return
	}
	recs, err := s.auditLog.ForRound(r.Context(), uint32(roundID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// --- verify / eligibility lookup --------------------------------------

func (s *Server) handleVerifyEligibility(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoundID uint32 `json:"round_id"`
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "decode request body"))
		return
	}
	addr, err := encoding.ParseAddress(req.Address)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInvalidAddress, err, "invalid address"))
		return
	}
	amt, err := encoding.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInvalidAmount, err, "invalid amount"))
		return
	}

	res, err := s.coord.Verify(r.Context(), req.RoundID, addr, amt, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"round_id":    req.RoundID,
		"address":     encoding.ToChecksum(addr),
		"amount":      amt.String(),
		"is_eligible": res.Status == coordinator.Eligible,
		"status":      res.Status,
	})
}

func (s *Server) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/get-eligibility/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if len(parts) != 2 {
		writeError(w, apperr.New(apperr.KindMalformedInput, "expected /get-eligibility/{round_id}/{address}"))
		return
	}
	roundID64, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindMalformedInput, err, "invalid round_id"))
		return
	}
	addr, err := encoding.ParseAddress(parts[1])
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInvalidAddress, err, "invalid address"))
		return
	}

	amt, err := s.trieStore.GetEntry(r.Context(), uint32(roundID64), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"round_id": parts[0],
		"address":  encoding.ToChecksum(addr),
		"amount":   amt.String(),
	})
}

func roundView(round store.Round) map[string]interface{} {
	return map[string]interface{}{
		"round_id":    round.RoundID,
		"root":        hashHex(round.RootHash),
		"entry_count": round.EntryCount,
		"state":       round.State,
		"created_at":  round.CreatedAt,
		"updated_at":  round.UpdatedAt,
	}
}
