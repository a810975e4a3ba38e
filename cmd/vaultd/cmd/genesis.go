package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	cmtos "github.com/cometbft/cometbft/libs/os"

	"github.com/paw-chain/vaultbook/app"
)

// GenesisDoc is the genesis file of the devnet.
type GenesisDoc struct {
	GenesisTime time.Time        `json:"genesis_time"`
	ChainID     string           `json:"chain_id"`
	AppState    app.GenesisState `json:"app_state"`
}

// Validate checks the document header; app state is validated by the ledger.
func (g GenesisDoc) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("genesis doc must include a chain id")
	}
	if len(g.AppState) == 0 {
		return fmt.Errorf("genesis doc has no app state")
	}
	return nil
}

// SaveAs writes the document as indented JSON.
func (g GenesisDoc) SaveAs(path string) error {
	bz, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal genesis doc: %w", err)
	}
	return cmtos.WriteFile(path, bz, 0o644)
}

// ReadGenesisDoc loads and validates the genesis file at path.
func ReadGenesisDoc(path string) (GenesisDoc, error) {
	var doc GenesisDoc
	bz, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("couldn't read genesis file: %w", err)
	}
	if err := json.Unmarshal(bz, &doc); err != nil {
		return doc, fmt.Errorf("error reading genesis doc at %s: %w", path, err)
	}
	return doc, doc.Validate()
}
