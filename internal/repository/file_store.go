package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"portfolio_tracker/internal/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// document is the on-disk shape of the store: one flat JSON document
// holding every wallet and every ledger entry.
type document struct {
	Wallets []entity.Wallet `json:"wallets"`
	Entries []Entry         `json:"entries"`
}

// FileStore is a flat key-value document store backing both the wallet
// and ledger repositories. The whole document is held in memory and
// rewritten on every mutation; at this system's scale (one user's
// wallets) that is deliberate simplicity, not an oversight.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu  sync.Mutex
	doc document
}

var (
	_ LedgerRepository = (*FileStore)(nil)
	_ WalletRepository = (*FileStore)(nil)
)

// NewFileStore opens (or creates) the document at path.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: logger.Named("FileStore"),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.logger.Info("Ledger file does not exist yet, starting empty", zap.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("failed to read ledger file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ledger file %s: %w", path, err)
		}
		s.logger.Info("Ledger file loaded",
			zap.String("path", path),
			zap.Int("wallets", len(s.doc.Wallets)),
			zap.Int("entries", len(s.doc.Entries)))
	}
	return s, nil
}

// persist writes the document out. Callers must hold s.mu.
func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger document: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
		}
	}
	// Write to a sibling temp file first so a crash mid-write cannot
	// truncate the only copy of the ledger.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write ledger file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace ledger file %s: %w", s.path, err)
	}
	return nil
}

// snapshot copies the document so a failed persist can restore it. The
// Entry structs are copied by value; their Lots backing arrays are only
// ever appended to, so the snapshot's views stay intact.
func (s *FileStore) snapshot() document {
	snap := document{
		Wallets: make([]entity.Wallet, len(s.doc.Wallets)),
		Entries: make([]Entry, len(s.doc.Entries)),
	}
	copy(snap.Wallets, s.doc.Wallets)
	copy(snap.Entries, s.doc.Entries)
	return snap
}

func (s *FileStore) walletExists(id string) bool {
	for _, w := range s.doc.Wallets {
		if w.ID == id {
			return true
		}
	}
	return false
}

// CreateWallet implements WalletRepository.
func (s *FileStore) CreateWallet(name string) (entity.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	w := entity.Wallet{ID: uuid.NewString(), Name: name}
	s.doc.Wallets = append(s.doc.Wallets, w)
	if err := s.persist(); err != nil {
		s.doc = snap
		return entity.Wallet{}, err
	}
	s.logger.Info("Wallet created", zap.String("walletID", w.ID), zap.String("name", name))
	return w, nil
}

// ListWallets implements WalletRepository.
func (s *FileStore) ListWallets() ([]entity.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallets := make([]entity.Wallet, len(s.doc.Wallets))
	copy(wallets, s.doc.Wallets)
	return wallets, nil
}

// GetWallet implements WalletRepository.
func (s *FileStore) GetWallet(id string) (entity.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.doc.Wallets {
		if w.ID == id {
			return w, nil
		}
	}
	return entity.Wallet{}, ErrWalletNotFound
}

// DeleteWallet implements WalletRepository. The lot deletion cascade
// happens in the same mutation, so a wallet can never linger with
// orphaned entries.
func (s *FileStore) DeleteWallet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, w := range s.doc.Wallets {
		if w.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrWalletNotFound
	}

	snap := s.snapshot()
	s.doc.Wallets = append(s.doc.Wallets[:idx], s.doc.Wallets[idx+1:]...)
	s.doc.Entries = deleteEntries(s.doc.Entries, func(e Entry) bool { return e.WalletID == id })

	if err := s.persist(); err != nil {
		s.doc = snap
		return err
	}
	s.logger.Info("Wallet deleted with its lots", zap.String("walletID", id))
	return nil
}

// AppendLot implements LedgerRepository.
func (s *FileStore) AppendLot(assetID string, asset entity.Asset, walletID string, lot entity.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.walletExists(walletID) {
		return ErrWalletNotFound
	}

	snap := s.snapshot()
	found := false
	for i := range s.doc.Entries {
		e := &s.doc.Entries[i]
		if e.AssetID == assetID && e.WalletID == walletID {
			e.Lots = append(e.Lots, lot)
			found = true
			break
		}
	}
	if !found {
		s.doc.Entries = append(s.doc.Entries, Entry{
			AssetID:  assetID,
			Asset:    asset,
			WalletID: walletID,
			Lots:     []entity.Lot{lot},
		})
	}

	if err := s.persist(); err != nil {
		s.doc = snap
		return err
	}
	s.logger.Debug("Lot appended",
		zap.String("assetID", assetID),
		zap.String("walletID", walletID),
		zap.String("amount", lot.Amount.String()))
	return nil
}

// ListLots implements LedgerRepository.
func (s *FileStore) ListLots(walletID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.walletExists(walletID) {
		return nil, ErrWalletNotFound
	}

	var entries []Entry
	for _, e := range s.doc.Entries {
		if e.WalletID == walletID {
			entries = append(entries, copyEntry(e))
		}
	}
	return entries, nil
}

// AssetLots implements LedgerRepository.
func (s *FileStore) AssetLots(assetID, walletID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.doc.Entries {
		if e.AssetID == assetID && e.WalletID == walletID {
			return copyEntry(e), nil
		}
	}
	return Entry{}, ErrEntryNotFound
}

// PruneIfExhausted implements LedgerRepository.
func (s *FileStore) PruneIfExhausted(assetID, walletID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.doc.Entries {
		if e.AssetID != assetID || e.WalletID != walletID {
			continue
		}
		if entity.TotalAmount(e.Lots).IsPositive() {
			return false, nil
		}
		snap := s.snapshot()
		s.doc.Entries = deleteEntries(s.doc.Entries, func(x Entry) bool {
			return x.AssetID == assetID && x.WalletID == walletID
		})
		if err := s.persist(); err != nil {
			s.doc = snap
			return false, err
		}
		s.logger.Info("Exhausted holding pruned",
			zap.String("assetID", assetID),
			zap.String("walletID", walletID))
		return true, nil
	}
	return false, nil
}

// DeleteLots implements LedgerRepository.
func (s *FileStore) DeleteLots(walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	s.doc.Entries = deleteEntries(s.doc.Entries, func(e Entry) bool { return e.WalletID == walletID })
	if err := s.persist(); err != nil {
		s.doc = snap
		return err
	}
	return nil
}

func copyEntry(e Entry) Entry {
	out := e
	out.Lots = make([]entity.Lot, len(e.Lots))
	copy(out.Lots, e.Lots)
	return out
}

func deleteEntries(entries []Entry, match func(Entry) bool) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if !match(e) {
			out = append(out, e)
		}
	}
	return out
}
