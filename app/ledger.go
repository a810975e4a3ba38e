package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec/address"
	"github.com/cosmos/cosmos-sdk/runtime"
	"github.com/cosmos/cosmos-sdk/telemetry"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authkeeper "github.com/cosmos/cosmos-sdk/x/auth/keeper"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	bankkeeper "github.com/cosmos/cosmos-sdk/x/bank/keeper"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
	gometrics "github.com/hashicorp/go-metrics"

	"github.com/paw-chain/vaultbook/x/vault"
	vaultkeeper "github.com/paw-chain/vaultbook/x/vault/keeper"
	vaulttypes "github.com/paw-chain/vaultbook/x/vault/types"
)

var (
	// ErrNotInitialized is returned by every operation before InitChain ran.
	ErrNotInitialized = errors.New("ledger has no genesis")
	// ErrAlreadyInitialized is returned by InitChain on a ledger with state.
	ErrAlreadyInitialized = errors.New("ledger already initialized")
	// ErrInvariantBroken rejects an operation whose result breaks a vault invariant.
	ErrInvariantBroken = errors.New("invariant broken")
)

// Block is the record of one committed operation.
type Block struct {
	Height  int64            `json:"height"`
	Time    time.Time        `json:"time"`
	Op      string           `json:"op"`
	AppHash []byte           `json:"app_hash"`
	Events  sdk.StringEvents `json:"events"`
}

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	ChainID string
	// InvariantCheckPeriod runs the vault invariants on every n-th operation
	// before it commits. Zero disables the check.
	InvariantCheckPeriod uint
	Instruments          *LedgerInstruments
}

// Ledger is the single-writer state machine of the devnet. It hosts the auth,
// bank and vault keepers over one CommitMultiStore; every delivered operation
// runs on a branch of the committed state and commits as its own height.
type Ledger struct {
	mu sync.RWMutex

	logger   log.Logger
	db       dbm.DB
	cms      storetypes.CommitMultiStore
	keys     map[string]*storetypes.KVStoreKey
	encoding EncodingConfig
	config   LedgerConfig
	lastTime time.Time

	AccountKeeper authkeeper.AccountKeeper
	BankKeeper    bankkeeper.BaseKeeper
	VaultKeeper   *vaultkeeper.Keeper

	// commitSeq is guarded by mu; the rest by subMu.
	commitSeq   uint64
	subMu       sync.Mutex
	published   *sync.Cond
	publishSeq  uint64
	nextSubID   int
	subscribers map[int]func(Block)
}

// NewLedger mounts the module stores on db and loads the latest committed height.
func NewLedger(db dbm.DB, logger log.Logger, cfg LedgerConfig) (*Ledger, error) {
	if cfg.ChainID == "" {
		cfg.ChainID = DefaultChainID
	}
	if cfg.Instruments == nil {
		tel, err := InitTelemetry(TelemetryConfig{}, cfg.ChainID)
		if err != nil {
			return nil, err
		}
		if cfg.Instruments, err = NewLedgerInstruments(tel.Meter()); err != nil {
			return nil, err
		}
	}

	keys := storetypes.NewKVStoreKeys(authtypes.StoreKey, banktypes.StoreKey, vaulttypes.StoreKey)
	cms := store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	for _, key := range keys {
		cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, nil)
	}
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load latest version: %w", err)
	}

	encoding := MakeEncodingConfig()
	authority := authtypes.NewModuleAddress(govtypes.ModuleName).String()
	bech32Prefix := sdk.GetConfig().GetBech32AccountAddrPrefix()

	maccPerms := map[string][]string{
		FaucetModuleName:      {authtypes.Minter},
		vaulttypes.ModuleName: nil,
	}
	accountKeeper := authkeeper.NewAccountKeeper(
		encoding.Codec,
		runtime.NewKVStoreService(keys[authtypes.StoreKey]),
		authtypes.ProtoBaseAccount,
		maccPerms,
		address.NewBech32Codec(bech32Prefix),
		bech32Prefix,
		authority,
	)
	bankKeeper := bankkeeper.NewBaseKeeper(
		encoding.Codec,
		runtime.NewKVStoreService(keys[banktypes.StoreKey]),
		accountKeeper,
		map[string]bool{},
		authority,
		logger,
	)
	vaultKeeper := vaultkeeper.NewKeeper(keys[vaulttypes.StoreKey], bankKeeper, authority)

	l := &Ledger{
		logger:        logger.With("module", "ledger"),
		db:            db,
		cms:           cms,
		keys:          keys,
		encoding:      encoding,
		config:        cfg,
		lastTime:      time.Now().UTC(),
		AccountKeeper: accountKeeper,
		BankKeeper:    bankKeeper,
		VaultKeeper:   vaultKeeper,
		subscribers:   make(map[int]func(Block)),
	}
	l.published = sync.NewCond(&l.subMu)
	l.logger.Info("ledger loaded", "chain_id", cfg.ChainID, "height", l.height())
	return l, nil
}

// ChainID returns the chain id stamped on every context.
func (l *Ledger) ChainID() string {
	return l.config.ChainID
}

// Codec returns the codec of the auth and bank stores.
func (l *Ledger) Codec() EncodingConfig {
	return l.encoding
}

// Height returns the last committed height.
func (l *Ledger) Height() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height()
}

func (l *Ledger) height() int64 {
	return l.cms.LastCommitID().Version
}

// Initialized reports whether genesis has been committed.
func (l *Ledger) Initialized() bool {
	return l.Height() > 0
}

func (l *Ledger) newContext(ms storetypes.MultiStore, height int64, now time.Time) sdk.Context {
	header := cmtproto.Header{ChainID: l.config.ChainID, Height: height, Time: now}
	return sdk.NewContext(ms, header, false, l.logger)
}

// InitChain commits genesis as height 1.
func (l *Ledger) InitChain(genesis GenesisState) (err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.height() > 0 {
		return fmt.Errorf("%w at height %d", ErrAlreadyInitialized, l.height())
	}
	cdc := l.encoding.Codec
	if err := genesis.Validate(cdc); err != nil {
		return fmt.Errorf("invalid genesis: %w", err)
	}

	var authGenesis authtypes.GenesisState
	cdc.MustUnmarshalJSON(genesis[authtypes.ModuleName], &authGenesis)
	var bankGenesis banktypes.GenesisState
	cdc.MustUnmarshalJSON(genesis[banktypes.ModuleName], &bankGenesis)
	vaultGenesis, err := vault.ParseGenesis(genesis[vaulttypes.ModuleName])
	if err != nil {
		return err
	}

	// The auth and bank keepers panic on inconsistent genesis.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("genesis rejected: %v", r)
		}
	}()

	now := time.Now().UTC()
	cache := l.cms.CacheMultiStore()
	ctx := l.newContext(cache, 1, now)
	l.AccountKeeper.InitGenesis(ctx, authGenesis)
	l.BankKeeper.InitGenesis(ctx, &bankGenesis)
	if err := l.VaultKeeper.InitGenesis(ctx, vaultGenesis); err != nil {
		return err
	}
	cache.Write()
	commitID := l.cms.Commit()
	l.lastTime = now

	l.logger.Info("genesis committed", "chain_id", l.config.ChainID, "height", commitID.Version, "app_hash", fmt.Sprintf("%X", commitID.Hash))
	return nil
}

// ExportGenesis returns the committed state of every module.
func (l *Ledger) ExportGenesis() (GenesisState, error) {
	genesis := make(GenesisState)
	err := l.Query(func(ctx sdk.Context) error {
		cdc := l.encoding.Codec
		var err error
		if genesis[authtypes.ModuleName], err = cdc.MarshalJSON(l.AccountKeeper.ExportGenesis(ctx)); err != nil {
			return err
		}
		if genesis[banktypes.ModuleName], err = cdc.MarshalJSON(l.BankKeeper.ExportGenesis(ctx)); err != nil {
			return err
		}
		vaultGenesis, err := l.VaultKeeper.ExportGenesis(ctx)
		if err != nil {
			return err
		}
		genesis[vaulttypes.ModuleName], err = json.Marshal(vaultGenesis)
		return err
	})
	return genesis, err
}

// Deliver runs fn against a branch of the committed state. On success the
// branch is written, committed as the next height and published to the
// subscribers; on failure nothing changes. Subscribers run after the ledger
// lock is released, in commit order.
func (l *Ledger) Deliver(ctx context.Context, op string, fn func(ctx sdk.Context) error) (Block, error) {
	block, seq, err := l.commit(ctx, op, fn)
	if err != nil {
		return Block{}, err
	}
	l.publish(seq, block)
	return block, nil
}

func (l *Ledger) commit(ctx context.Context, op string, fn func(ctx sdk.Context) error) (Block, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.height() == 0 {
		return Block{}, 0, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return Block{}, 0, err
	}
	height := l.height() + 1

	ctx, end := TraceDeliver(ctx, op, height)

	start := time.Now()
	block, err := l.deliver(ctx, op, height, fn)
	end(err)
	l.config.Instruments.RecordDeliver(ctx, op, time.Since(start), err == nil)
	if err != nil {
		l.logger.Debug("operation rejected", "op", op, "height", height, "err", err)
		telemetry.IncrCounterWithLabels(
			[]string{vaulttypes.ModuleName, "rejected"},
			1,
			[]gometrics.Label{
				telemetry.NewLabel("op", op),
				telemetry.NewLabel("class", vaulttypes.Classify(err).String()),
			},
		)
		return Block{}, 0, err
	}
	l.config.Instruments.RecordHeight(ctx, block.Height)

	seq := l.commitSeq
	l.commitSeq++
	return block, seq, nil
}

func (l *Ledger) deliver(goCtx context.Context, op string, height int64, fn func(ctx sdk.Context) error) (Block, error) {
	now := time.Now().UTC()
	cache := l.cms.CacheMultiStore()
	ctx := l.newContext(cache, height, now).WithContext(goCtx)

	if err := fn(ctx); err != nil {
		return Block{}, err
	}

	if period := uint64(l.config.InvariantCheckPeriod); period > 0 && uint64(height)%period == 0 {
		if msg, broken := vaultkeeper.AllInvariants(*l.VaultKeeper)(ctx); broken {
			l.logger.Error("operation breaks invariants", "op", op, "height", height, "details", msg)
			telemetry.IncrCounterWithLabels(
				[]string{vaulttypes.ModuleName, "invariant_broken"},
				1,
				[]gometrics.Label{telemetry.NewLabel("op", op)},
			)
			return Block{}, fmt.Errorf("%w: %s", ErrInvariantBroken, msg)
		}
	}

	cache.Write()
	commitID := l.cms.Commit()
	l.lastTime = now

	return Block{
		Height:  commitID.Version,
		Time:    now,
		Op:      op,
		AppHash: commitID.Hash,
		Events:  sdk.StringifyEvents(ctx.EventManager().ABCIEvents()),
	}, nil
}

// Query runs fn against an immutable view of the last committed height.
// Queries never block each other.
func (l *Ledger) Query(fn func(ctx sdk.Context) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	height := l.height()
	if height == 0 {
		return ErrNotInitialized
	}
	view, err := l.cms.CacheMultiStoreWithVersion(height)
	if err != nil {
		return fmt.Errorf("failed to load height %d: %w", height, err)
	}
	return fn(l.newContext(view, height, l.lastTime))
}

// Faucet mints coins of registered test denoms into to.
func (l *Ledger) Faucet(ctx context.Context, to sdk.AccAddress, coins sdk.Coins) (Block, error) {
	return l.Deliver(ctx, "faucet", func(ctx sdk.Context) error {
		for _, coin := range coins {
			if _, found := l.BankKeeper.GetDenomMetaData(ctx, coin.Denom); !found {
				return vaulttypes.ErrDenomMetadataNotFound.Wrap(coin.Denom)
			}
		}
		if err := l.BankKeeper.MintCoins(ctx, FaucetModuleName, coins); err != nil {
			return err
		}
		return l.BankKeeper.SendCoinsFromModuleToAccount(ctx, FaucetModuleName, to, coins)
	})
}

// Subscribe registers fn to receive every committed block. The returned
// function removes the subscription.
func (l *Ledger) Subscribe(fn func(Block)) func() {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = fn
	return func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		delete(l.subscribers, id)
	}
}

// publish hands block to a snapshot of the subscribers once every block
// committed before it has been published.
func (l *Ledger) publish(seq uint64, block Block) {
	l.subMu.Lock()
	for l.publishSeq != seq {
		l.published.Wait()
	}
	subscribers := make([]func(Block), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		subscribers = append(subscribers, fn)
	}
	l.subMu.Unlock()

	for _, fn := range subscribers {
		fn(block)
	}

	l.subMu.Lock()
	l.publishSeq++
	l.published.Broadcast()
	l.subMu.Unlock()
}

// Close releases the underlying database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}
