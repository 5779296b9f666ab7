package state

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"cgiftledger/native/fees"
	"cgiftledger/native/governance"
	"cgiftledger/native/liquidity"
	"cgiftledger/native/rewards"
	"cgiftledger/native/staking"
	"cgiftledger/native/token"
	"cgiftledger/storage"
)

// Key layout. Entities live under typed prefixes; append-only records are
// keyed by a zero-padded sequence so prefix iteration yields insertion order.
const (
	keyToken         = "token/"
	keyBurn          = "burns/"
	keyReward        = "rewards/"
	keyFee           = "fees/"
	keyStakePosition = "stake/pos/"
	keyStakeOwner    = "stake/owner/"
	keyLiqPosition   = "liq/pos/"
	keyLiqOwner      = "liq/owner/"
	keyProposal      = "gov/prop/"
	keyVote          = "gov/vote/"
	keySeqGlobal     = "seq/global"
	keySeqProposal   = "seq/proposal"
)

// AuditSink receives copies of append-only records for relational history
// queries. Sink failures never fail the primary write; they are logged and
// the key-value store remains the source of truth.
type AuditSink interface {
	RecordBurn(b *token.Burn) error
	RecordReward(d *rewards.Distribution) error
	RecordFeeDistribution(d *fees.Distribution) error
}

// Store persists every ledger entity in one key-value database. It is the
// single concrete implementation behind the narrow per-engine state
// interfaces, serialising writes with a store-wide mutex and guarding
// read-modify-write cycles with per-entity version counters.
//
// Operations that pair an append-only record with a version-fenced entity
// write (vote+tally, claim+position, burn+supply) go through one atomic
// storage batch: a version conflict is detected before anything is queued,
// so a failed write leaves no orphaned record behind.
type Store struct {
	mu    sync.Mutex
	db    storage.Database
	audit AuditSink
	nowFn func() time.Time
	log   *slog.Logger
}

// NewStore wraps the database in a ledger store.
func NewStore(db storage.Database) *Store {
	return &Store{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
		log:   slog.Default(),
	}
}

// SetAuditSink attaches a relational audit sink for append-only records.
func (s *Store) SetAuditSink(sink AuditSink) { s.audit = sink }

// SetNowFunc overrides the time source. Nil restores the UTC clock.
func (s *Store) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	s.nowFn = now
}

// SetLogger overrides the structured logger. Nil restores the default.
func (s *Store) SetLogger(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	s.log = log
}

func (s *Store) get(key string, out any) (bool, error) {
	raw, err := s.db.Get([]byte(key))
	if err != nil {
		if stderrors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	if err := s.db.Put([]byte(key), raw); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

func (s *Store) delete(key string) error {
	if err := s.db.Delete([]byte(key)); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrStorageUnavailable, key, err)
	}
	return nil
}

func batchPut(batch *storage.Batch, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	batch.Put([]byte(key), raw)
	return nil
}

func (s *Store) write(batch *storage.Batch) error {
	if err := s.db.Write(batch); err != nil {
		return fmt.Errorf("%w: batch write: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// nextSeq increments and returns the named monotonic counter. Callers must
// hold the store mutex.
func (s *Store) nextSeq(key string) (uint64, error) {
	seq, err := s.peekSeq(key)
	if err != nil {
		return 0, err
	}
	seq++
	if err := s.db.Put([]byte(key), seqBytes(seq)); err != nil {
		return 0, fmt.Errorf("%w: put %s: %v", ErrStorageUnavailable, key, err)
	}
	return seq, nil
}

// nextSeqBatched reserves the next counter value and queues the counter
// update on the batch, so the bump commits together with the record that
// consumes it. Callers must hold the store mutex.
func (s *Store) nextSeqBatched(key string, batch *storage.Batch) (uint64, error) {
	seq, err := s.peekSeq(key)
	if err != nil {
		return 0, err
	}
	seq++
	batch.Put([]byte(key), seqBytes(seq))
	return seq, nil
}

func (s *Store) peekSeq(key string) (uint64, error) {
	raw, err := s.db.Get([]byte(key))
	switch {
	case err == nil:
		return binary.BigEndian.Uint64(raw), nil
	case stderrors.Is(err, storage.ErrKeyNotFound):
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: get %s: %v", ErrStorageUnavailable, key, err)
	}
}

func seqBytes(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

// NextTxHash mints a deterministic-length idempotency hash for an append-only
// record: blake3 over the record kind, a monotonic sequence, and the current
// nanosecond timestamp.
func (s *Store) NextTxHash(kind string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.nextSeq(keySeqGlobal)
	if err != nil {
		return "", err
	}
	payload := make([]byte, 0, len(kind)+16)
	payload = append(payload, kind...)
	payload = binary.BigEndian.AppendUint64(payload, seq)
	payload = binary.BigEndian.AppendUint64(payload, uint64(s.nowFn().UnixNano()))
	sum := blake3.Sum256(payload)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// --- token ledger state ---

// Token loads the supply record for a symbol.
func (s *Store) Token(symbol string) (*token.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tok token.Token
	ok, err := s.get(keyToken+symbol, &tok)
	if err != nil || !ok {
		return nil, false, err
	}
	return &tok, true, nil
}

// PutToken writes the supply record, enforcing the version fence.
func (s *Store) PutToken(t *token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.fencedToken(t)
	if err != nil {
		return err
	}
	return s.put(keyToken+t.Symbol, next)
}

// RecordBurn commits the reduced supply record and its immutable burn entry
// as one atomic batch, then forwards the burn to the audit sink. A version
// conflict on the supply record aborts before anything is written.
func (s *Store) RecordBurn(t *token.Token, b *token.Burn) error {
	s.mu.Lock()
	next, err := s.fencedToken(t)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	batch := new(storage.Batch)
	seq, err := s.nextSeqBatched(keySeqGlobal, batch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := batchPut(batch, keyToken+t.Symbol, next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := batchPut(batch, fmt.Sprintf("%s%020d", keyBurn, seq), b); err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.write(batch)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.forward(func(sink AuditSink) error { return sink.RecordBurn(b) }, "burn", b.ID)
	return nil
}

func (s *Store) fencedToken(t *token.Token) (*token.Token, error) {
	var current token.Token
	ok, err := s.get(keyToken+t.Symbol, &current)
	if err != nil {
		return nil, err
	}
	if ok && current.Version != t.Version {
		return nil, fmt.Errorf("%w: token %s version %d != %d",
			ErrConcurrentModification, t.Symbol, t.Version, current.Version)
	}
	next := t.Clone()
	next.Version++
	return next, nil
}

// --- staking engine state ---

// Position loads one staking position.
func (s *Store) Position(id string) (*staking.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p staking.Position
	ok, err := s.get(keyStakePosition+id, &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

// PutPosition writes a staking position and maintains the owner index.
func (s *Store) PutPosition(p *staking.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.fencedPosition(p)
	if err != nil {
		return err
	}
	if err := s.put(keyStakePosition+p.ID, next); err != nil {
		return err
	}
	return s.put(keyStakeOwner+p.Owner+"/"+p.ID, p.ID)
}

// RecordClaim commits the reward payout record and the settled position (zero
// pending, advanced reward debt) as one atomic batch, then forwards the
// payout to the audit sink. A version conflict on the position aborts before
// anything is written, so a failed claim leaves no payout record to double
// count.
func (s *Store) RecordClaim(d *rewards.Distribution, p *staking.Position) error {
	s.mu.Lock()
	next, err := s.fencedPosition(p)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	batch := new(storage.Batch)
	seq, err := s.nextSeqBatched(keySeqGlobal, batch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := batchPut(batch, keyStakePosition+p.ID, next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := batchPut(batch, fmt.Sprintf("%s%020d", keyReward, seq), d); err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.write(batch)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.forward(func(sink AuditSink) error { return sink.RecordReward(d) }, "reward", d.ID)
	return nil
}

func (s *Store) fencedPosition(p *staking.Position) (*staking.Position, error) {
	var current staking.Position
	ok, err := s.get(keyStakePosition+p.ID, &current)
	if err != nil {
		return nil, err
	}
	if ok && current.Version != p.Version {
		return nil, fmt.Errorf("%w: staking position %s version %d != %d",
			ErrConcurrentModification, p.ID, p.Version, current.Version)
	}
	next := p.Clone()
	next.Version++
	return next, nil
}

// DeletePosition removes a staking position and its owner index entry.
func (s *Store) DeletePosition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p staking.Position
	ok, err := s.get(keyStakePosition+id, &p)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.delete(keyStakePosition + id); err != nil {
		return err
	}
	return s.delete(keyStakeOwner + p.Owner + "/" + id)
}

// PositionsByOwner loads the owner's staking positions via the owner index.
func (s *Store) PositionsByOwner(owner string) ([]*staking.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.indexedIDs(keyStakeOwner + owner + "/")
	if err != nil {
		return nil, err
	}
	out := make([]*staking.Position, 0, len(ids))
	for _, id := range ids {
		var p staking.Position
		ok, err := s.get(keyStakePosition+id, &p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

// ActivePositions scans the whole staking book.
func (s *Store) ActivePositions() ([]*staking.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*staking.Position
	err := s.scan(keyStakePosition, func(raw []byte) error {
		var p staking.Position
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.Active {
			out = append(out, &p)
		}
		return nil
	})
	return out, err
}

// ActiveStakingPositions exposes the owner's active stake to the governance
// engine for voting power derivation.
func (s *Store) ActiveStakingPositions(owner string) ([]*staking.Position, error) {
	positions, err := s.PositionsByOwner(owner)
	if err != nil {
		return nil, err
	}
	out := positions[:0]
	for _, p := range positions {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- liquidity engine state ---

// LiquidityPosition loads one LP position.
func (s *Store) LiquidityPosition(id string) (*liquidity.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p liquidity.Position
	ok, err := s.get(keyLiqPosition+id, &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

// PutLiquidityPosition writes an LP position and maintains the owner index.
func (s *Store) PutLiquidityPosition(p *liquidity.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.fencedLiquidityPosition(p)
	if err != nil {
		return err
	}
	if err := s.put(keyLiqPosition+p.ID, next); err != nil {
		return err
	}
	return s.put(keyLiqOwner+p.Owner+"/"+p.ID, p.ID)
}

// RecordLiquidityClaim is the LP mirror of RecordClaim: payout record and
// settled position commit in one atomic batch.
func (s *Store) RecordLiquidityClaim(d *rewards.Distribution, p *liquidity.Position) error {
	s.mu.Lock()
	next, err := s.fencedLiquidityPosition(p)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	batch := new(storage.Batch)
	seq, err := s.nextSeqBatched(keySeqGlobal, batch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := batchPut(batch, keyLiqPosition+p.ID, next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := batchPut(batch, fmt.Sprintf("%s%020d", keyReward, seq), d); err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.write(batch)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.forward(func(sink AuditSink) error { return sink.RecordReward(d) }, "reward", d.ID)
	return nil
}

func (s *Store) fencedLiquidityPosition(p *liquidity.Position) (*liquidity.Position, error) {
	var current liquidity.Position
	ok, err := s.get(keyLiqPosition+p.ID, &current)
	if err != nil {
		return nil, err
	}
	if ok && current.Version != p.Version {
		return nil, fmt.Errorf("%w: liquidity position %s version %d != %d",
			ErrConcurrentModification, p.ID, p.Version, current.Version)
	}
	next := p.Clone()
	next.Version++
	return next, nil
}

// DeleteLiquidityPosition removes an LP position and its owner index entry.
func (s *Store) DeleteLiquidityPosition(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p liquidity.Position
	ok, err := s.get(keyLiqPosition+id, &p)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := s.delete(keyLiqPosition + id); err != nil {
		return err
	}
	return s.delete(keyLiqOwner + p.Owner + "/" + id)
}

// LiquidityPositionsByOwner loads the owner's LP positions via the owner
// index.
func (s *Store) LiquidityPositionsByOwner(owner string) ([]*liquidity.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.indexedIDs(keyLiqOwner + owner + "/")
	if err != nil {
		return nil, err
	}
	out := make([]*liquidity.Position, 0, len(ids))
	for _, id := range ids {
		var p liquidity.Position
		ok, err := s.get(keyLiqPosition+id, &p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

// ActiveLiquidityPositions scans the whole LP book.
func (s *Store) ActiveLiquidityPositions() ([]*liquidity.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*liquidity.Position
	err := s.scan(keyLiqPosition, func(raw []byte) error {
		var p liquidity.Position
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		if p.Active {
			out = append(out, &p)
		}
		return nil
	})
	return out, err
}

// --- fee records ---

// AppendFeeDistribution records an immutable fee waterfall run and forwards
// it to the audit sink.
func (s *Store) AppendFeeDistribution(d *fees.Distribution) error {
	s.mu.Lock()
	seq, err := s.nextSeq(keySeqGlobal)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	err = s.put(fmt.Sprintf("%s%020d", keyFee, seq), d)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.forward(func(sink AuditSink) error { return sink.RecordFeeDistribution(d) }, "fee", d.ID)
	return nil
}

// --- governance state ---

// NextProposalID mints the next sequential proposal id.
func (s *Store) NextProposalID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq(keySeqProposal)
}

// Proposal loads one proposal.
func (s *Store) Proposal(id uint64) (*governance.Proposal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p governance.Proposal
	ok, err := s.get(proposalKey(id), &p)
	if err != nil || !ok {
		return nil, false, err
	}
	return &p, true, nil
}

// PutProposal writes a proposal, enforcing the version fence.
func (s *Store) PutProposal(p *governance.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.fencedProposal(p)
	if err != nil {
		return err
	}
	return s.put(proposalKey(p.ID), next)
}

// RecordVote commits the immutable ballot and the updated tally as one
// atomic batch. A version conflict on the proposal aborts before anything is
// written, so a conflicted cast leaves no ballot behind to block the retry.
func (s *Store) RecordVote(v *governance.Vote, p *governance.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.fencedProposal(p)
	if err != nil {
		return err
	}
	batch := new(storage.Batch)
	if err := batchPut(batch, voteKey(v.ProposalID, v.Voter), v); err != nil {
		return err
	}
	if err := batchPut(batch, proposalKey(p.ID), next); err != nil {
		return err
	}
	return s.write(batch)
}

func (s *Store) fencedProposal(p *governance.Proposal) (*governance.Proposal, error) {
	var current governance.Proposal
	ok, err := s.get(proposalKey(p.ID), &current)
	if err != nil {
		return nil, err
	}
	if ok && current.Version != p.Version {
		return nil, fmt.Errorf("%w: proposal %d version %d != %d",
			ErrConcurrentModification, p.ID, p.Version, current.Version)
	}
	next := p.Clone()
	next.Version++
	return next, nil
}

// Proposals loads the full proposal set.
func (s *Store) Proposals() ([]*governance.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*governance.Proposal
	err := s.scan(keyProposal, func(raw []byte) error {
		var p governance.Proposal
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		out = append(out, &p)
		return nil
	})
	return out, err
}

// Vote loads one voter's ballot on a proposal.
func (s *Store) Vote(proposalID uint64, voter string) (*governance.Vote, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v governance.Vote
	ok, err := s.get(voteKey(proposalID, voter), &v)
	if err != nil || !ok {
		return nil, false, err
	}
	return &v, true, nil
}

// ListVotes loads every ballot cast on a proposal.
func (s *Store) ListVotes(proposalID uint64) ([]*governance.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*governance.Vote
	err := s.scan(fmt.Sprintf("%s%016x/", keyVote, proposalID), func(raw []byte) error {
		var v governance.Vote
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		out = append(out, &v)
		return nil
	})
	return out, err
}

// --- helpers ---

func proposalKey(id uint64) string {
	return fmt.Sprintf("%s%016x", keyProposal, id)
}

func voteKey(proposalID uint64, voter string) string {
	return fmt.Sprintf("%s%016x/%s", keyVote, proposalID, voter)
}

// scan iterates a prefix and feeds every value to fn. Callers must hold the
// store mutex.
func (s *Store) scan(prefix string, fn func(raw []byte) error) error {
	it := s.db.NewIterator([]byte(prefix))
	defer it.Release()
	for it.Next() {
		if err := fn(it.Value()); err != nil {
			return fmt.Errorf("state: scan %s: %w", prefix, err)
		}
	}
	return nil
}

// indexedIDs collects the entity ids stored under an index prefix.
func (s *Store) indexedIDs(prefix string) ([]string, error) {
	var ids []string
	err := s.scan(prefix, func(raw []byte) error {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func (s *Store) forward(fn func(AuditSink) error, kind, id string) {
	if s.audit == nil {
		return
	}
	if err := fn(s.audit); err != nil {
		s.log.Warn("audit sink append failed", "kind", kind, "id", id, "err", err)
	}
}
