package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/Jiang-hao/hostWalletService/internal/model"
	"github.com/Jiang-hao/hostWalletService/internal/util"
)

// Seed holds the collaborator records that the host and payment services own
// in a full deployment.
type Seed struct {
	Hosts    []model.Host    `json:"hosts"`
	Payments []model.Payment `json:"payments"`
}

// LoadSeed reads a JSON Seed and stores every record. Nothing is stored if any
// record is invalid.
func (s *Store) LoadSeed(r io.Reader) (Seed, error) {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("failed to decode seed: %w", err)
	}

	for i, h := range seed.Hosts {
		if h.ID == uuid.Nil || h.UserID == uuid.Nil {
			return Seed{}, fmt.Errorf("seed host %d: id and userId are required", i)
		}
	}
	for i, p := range seed.Payments {
		if p.ID == uuid.Nil || p.BookingID == uuid.Nil {
			return Seed{}, fmt.Errorf("seed payment %d: id and bookingId are required", i)
		}
		if p.Amount.IsNegative() || !util.InMinorUnits(p.Amount) {
			return Seed{}, fmt.Errorf("seed payment %d: invalid amount %s", i, p.Amount)
		}
	}

	for i := range seed.Hosts {
		s.PutHost(&seed.Hosts[i])
	}
	for i := range seed.Payments {
		s.PutPayment(&seed.Payments[i])
	}
	return seed, nil
}

func (s *Store) LoadSeedFile(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return s.LoadSeed(f)
}
