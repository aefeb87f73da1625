// Package aggregate reduces per-trial measurement records into one summary
// per algorithm.
package aggregate

import (
	"errors"
	"fmt"
	"math"

	"github.com/weiihann/cipherbench/harness"
)

// Precision is the number of decimal places summaries are rounded to.
const Precision = 6

// ErrIntegrity marks records of one algorithm that disagree on static
// metadata.
var ErrIntegrity = errors.New("inconsistent algorithm metadata")

// IntegrityError reports the first static field that differs between
// records of the same algorithm.
type IntegrityError struct {
	Algorithm string
	MessageID int
	Field     string
	Want      any
	Got       any
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s differs on message %d: want %v, got %v",
		e.Algorithm, e.Field, e.MessageID, e.Want, e.Got)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// Summary is the per-algorithm reduction of a run.
type Summary struct {
	Algorithm          string  `json:"algorithm_name"`
	MeanEncryptionTime float64 `json:"mean_encryption_time"`
	MeanDecryptionTime float64 `json:"mean_decryption_time"`
	MeanCiphertextSize float64 `json:"mean_ciphertext_size"`
	KeySizeBits        int     `json:"key_size_bits"`
	QuantumResistant   bool    `json:"quantum_resistant"`
	BestUseCase        string  `json:"best_use_case"`
	Trials             int     `json:"trials"`
}

type group struct {
	first harness.Record
	enc   float64
	dec   float64
	size  float64
	n     int
}

// Aggregate groups records by algorithm and averages their timings and
// ciphertext sizes. Summaries are returned in order of each algorithm's
// first record. Static fields are copied, and any record disagreeing with
// the first of its algorithm yields an *IntegrityError.
func Aggregate(records []harness.Record) ([]Summary, error) {
	groups := make(map[string]*group)
	order := make([]string, 0)

	for _, r := range records {
		g, ok := groups[r.Algorithm]
		if !ok {
			g = &group{first: r}
			groups[r.Algorithm] = g
			order = append(order, r.Algorithm)
		} else if err := checkStatic(g.first, r); err != nil {
			return nil, err
		}

		g.enc += r.EncryptionTime
		g.dec += r.DecryptionTime
		g.size += float64(r.CiphertextSize)
		g.n++
	}

	summaries := make([]Summary, 0, len(order))

	for _, name := range order {
		g := groups[name]
		n := float64(g.n)

		summaries = append(summaries, Summary{
			Algorithm:          name,
			MeanEncryptionTime: Round(g.enc / n),
			MeanDecryptionTime: Round(g.dec / n),
			MeanCiphertextSize: Round(g.size / n),
			KeySizeBits:        g.first.KeySizeBits,
			QuantumResistant:   g.first.QuantumResistant,
			BestUseCase:        g.first.BestUseCase,
			Trials:             g.n,
		})
	}

	return summaries, nil
}

// Round rounds x to Precision decimal places.
func Round(x float64) float64 {
	scale := math.Pow10(Precision)

	return math.Round(x*scale) / scale
}

func checkStatic(want, got harness.Record) error {
	mismatch := func(field string, w, g any) error {
		return &IntegrityError{
			Algorithm: want.Algorithm,
			MessageID: got.MessageID,
			Field:     field,
			Want:      w,
			Got:       g,
		}
	}

	switch {
	case want.KeySizeBits != got.KeySizeBits:
		return mismatch("key_size_bits", want.KeySizeBits, got.KeySizeBits)
	case want.QuantumResistant != got.QuantumResistant:
		return mismatch("quantum_resistant", want.QuantumResistant, got.QuantumResistant)
	case want.BestUseCase != got.BestUseCase:
		return mismatch("best_use_case", want.BestUseCase, got.BestUseCase)
	}

	return nil
}
