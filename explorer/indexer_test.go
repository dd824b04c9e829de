package explorer

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"nftloans/core/types"
	"nftloans/native/loans"
)

func openTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	ix, err := Open(path, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return ix
}

func TestIndexerRecordsEngineEvents(t *testing.T) {
	ix := openTestIndexer(t)

	engine := loans.NewEngine()
	engine.SetState(newIndexerState())
	engine.SetEmitter(ix)

	if _, err := engine.Initialize("USDH", 100); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	records, err := ix.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one indexed event, got %d", len(records))
	}
	if records[0].Type != "loans.market.initialized" {
		t.Fatalf("unexpected event type %q", records[0].Type)
	}
	attrs := map[string]string{}
	if err := json.Unmarshal([]byte(records[0].Attributes), &attrs); err != nil {
		t.Fatalf("decode attributes: %v", err)
	}
	if attrs["token"] != "USDH" {
		t.Fatalf("expected token attribute, got %v", attrs)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	ix := openTestIndexer(t)

	engine := loans.NewEngine()
	engine.SetState(newIndexerState())
	engine.SetEmitter(ix)

	for _, token := range []string{"USDH", "EURH", "GBPH"} {
		if _, err := engine.Initialize(token, 0); err != nil {
			t.Fatalf("Initialize %s: %v", token, err)
		}
	}

	records, err := ix.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(records))
	}
	if records[0].ID <= records[1].ID {
		t.Fatalf("expected newest-first ordering, got ids %d, %d", records[0].ID, records[1].ID)
	}
}

// minimal in-memory engine state, just enough to drive event emission

type indexerState struct {
	markets map[string]*loans.Market
}

func newIndexerState() *indexerState {
	return &indexerState{markets: make(map[string]*loans.Market)}
}

func (s *indexerState) LoansGetMarket(token string) (*loans.Market, bool, error) {
	market, ok := s.markets[token]
	if !ok {
		return nil, false, nil
	}
	return market.Clone(), true, nil
}

func (s *indexerState) LoansPutMarket(market *loans.Market) error {
	s.markets[market.Token] = market.Clone()
	return nil
}

func (s *indexerState) LoansGetOrder(string, uint64) (*loans.Order, bool, error) {
	return nil, false, nil
}

func (s *indexerState) LoansPutOrder(*loans.Order) error { return nil }

func (s *indexerState) GetAccount([20]byte) (*types.Account, error) {
	return &types.Account{}, nil
}

func (s *indexerState) PutAccount([20]byte, *types.Account) error { return nil }
