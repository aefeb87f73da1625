// Package harness drives encryption adapters over a message corpus and
// collects one measurement record per (message, algorithm) trial.
package harness

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/weiihann/cipherbench/algorithm"
)

// Record is the measurement of one successful trial. MessageID is the
// 1-based position of the message in the corpus.
type Record struct {
	MessageID        int     `json:"message_id"`
	Algorithm        string  `json:"algorithm_name"`
	CiphertextSize   int     `json:"ciphertext_size"`
	EncryptionTime   float64 `json:"encryption_time"`
	DecryptionTime   float64 `json:"decryption_time"`
	KeySizeBits      int     `json:"key_size_bits"`
	QuantumResistant bool    `json:"quantum_resistant"`
	BestUseCase      string  `json:"best_use_case"`
}

// NewRecord attaches a message id to an adapter measurement.
func NewRecord(messageID int, m algorithm.Measurement) Record {
	return Record{
		MessageID:        messageID,
		Algorithm:        m.Algorithm,
		CiphertextSize:   m.CiphertextSize,
		EncryptionTime:   m.EncryptionTime,
		DecryptionTime:   m.DecryptionTime,
		KeySizeBits:      m.KeySizeBits,
		QuantumResistant: m.QuantumResistant,
		BestUseCase:      m.BestUseCase,
	}
}

// Metadata returns the static algorithm fields of the record.
func (r Record) Metadata() algorithm.Metadata {
	return algorithm.Metadata{
		KeySizeBits:      r.KeySizeBits,
		QuantumResistant: r.QuantumResistant,
		BestUseCase:      r.BestUseCase,
	}
}

// TrialFailure identifies a dropped trial and why it failed.
type TrialFailure struct {
	MessageID int
	Algorithm string
	Err       error
}

func (f TrialFailure) Error() string {
	return fmt.Sprintf("%s on message %d: %v", f.Algorithm, f.MessageID, f.Err)
}

func (f TrialFailure) Unwrap() error { return f.Err }

// MarshalJSON renders the error as a string.
func (f TrialFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}

	return json.Marshal(struct {
		MessageID int    `json:"message_id"`
		Algorithm string `json:"algorithm_name"`
		Error     string `json:"error"`
	}{f.MessageID, f.Algorithm, msg})
}

// CorpusInfo describes the messages a run was fed.
type CorpusInfo struct {
	Source    string `json:"source"`
	Synthetic bool   `json:"synthetic"`
	Messages  int    `json:"messages"`
}

// Result holds everything produced by one benchmark run.
type Result struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	Elapsed    time.Duration  `json:"elapsed_ns"`
	Corpus     CorpusInfo     `json:"corpus"`
	Algorithms []string       `json:"algorithms"`
	Records    []Record       `json:"records"`
	Failures   []TrialFailure `json:"failures"`
}
