package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/weiihann/cipherbench/aggregate"
	"github.com/weiihann/cipherbench/harness"
)

// Input is everything a report document is rendered from.
type Input struct {
	Summaries []aggregate.Summary
	Records   []harness.Record
	// Corpus is optional. When set and synthetic, the document says so.
	Corpus *harness.CorpusInfo
}

// Findings names the leading algorithm in each headline category.
type Findings struct {
	FastestEncryption string
	FastestDecryption string
	SmallestKey       string
	SmallestCipher    string
	QuantumResistant  []string
}

// Tradeoff is the security and performance score of one algorithm. Higher
// is better for both.
type Tradeoff struct {
	Algorithm   string
	Security    float64
	Performance float64
}

// Distribution is the spread of per-trial encryption times for one
// algorithm.
type Distribution struct {
	Algorithm string
	Min       float64
	Median    float64
	Max       float64
	Trials    int
}

var recommendations = []string{
	"For sensitive data requiring long-term security, quantum-resistant " +
		"algorithms are recommended despite the performance trade-offs.",
	"AES remains the most efficient choice for bulk data encryption where " +
		"quantum resistance is not a concern.",
	"A hybrid approach combining classical and post-quantum algorithms may " +
		"provide the best balance of security and performance.",
}

const conclusion = "This benchmark demonstrates the trade-offs between " +
	"classical and post-quantum encryption algorithms. Classical algorithms " +
	"like AES and RSA offer excellent performance but are vulnerable to " +
	"quantum computing attacks. Post-quantum algorithms provide future-proof " +
	"security at the cost of larger keys and ciphertexts. A practical path " +
	"is to keep classical algorithms for everyday operations while moving " +
	"sensitive and long-lived data to quantum-resistant algorithms."

// Document writes the full markdown report.
func Document(w io.Writer, in Input) error {
	if len(in.Summaries) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "# Encryption Algorithms Benchmark")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Comparative analysis of classical (AES, RSA) and "+
		"post-quantum (Kyber, McEliece) encryption over a corpus of text "+
		"messages, measuring encryption and decryption time, ciphertext "+
		"size and key size.")
	fmt.Fprintln(w)

	if in.Corpus != nil && in.Corpus.Synthetic {
		fmt.Fprintf(w, "> Note: the input corpus was unavailable; these "+
			"results were measured on %d synthetic messages.\n\n",
			in.Corpus.Messages)
	}

	if err := Generate(w, in.Summaries); err != nil {
		return err
	}

	fmt.Fprintln(w)

	if dist := Distributions(in.Records); len(dist) > 0 {
		fmt.Fprintln(w, "## Encryption Time Distribution")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| Algorithm | Trials | Min | Median | Max |")
		fmt.Fprintln(w, "|-----------|--------|-----|--------|-----|")

		for _, d := range dist {
			fmt.Fprintf(w, "| %s | %d | %s | %s | %s |\n",
				d.Algorithm, d.Trials,
				formatSeconds(d.Min),
				formatSeconds(d.Median),
				formatSeconds(d.Max),
			)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "## Security vs Performance Trade-off")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Algorithm | Security | Performance |")
	fmt.Fprintln(w, "|-----------|----------|-------------|")

	for _, t := range Tradeoffs(in.Summaries) {
		fmt.Fprintf(w, "| %s | %.3f | %.3f |\n",
			t.Algorithm, t.Security, t.Performance)
	}

	fmt.Fprintln(w)

	f := Summarize(in.Summaries)

	fmt.Fprintln(w, "## Key Findings and Recommendations")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "- %s provides the fastest encryption, making it ideal "+
		"for performance-critical applications.\n", f.FastestEncryption)
	fmt.Fprintf(w, "- %s offers the quickest decryption, which matters for "+
		"real-time data access.\n", f.FastestDecryption)
	fmt.Fprintf(w, "- %s uses the smallest key, requiring less storage for "+
		"key management.\n", f.SmallestKey)
	fmt.Fprintf(w, "- %s produces the smallest ciphertext, minimizing "+
		"bandwidth and storage.\n", f.SmallestCipher)
	fmt.Fprintf(w, "- %s\n", quantumLine(f.QuantumResistant))

	for _, r := range recommendations {
		fmt.Fprintf(w, "- %s\n", r)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Conclusion")
	fmt.Fprintln(w)
	fmt.Fprintln(w, conclusion)

	return nil
}

// Summarize picks the leader of each category. Ties go to the algorithm
// listed first.
func Summarize(summaries []aggregate.Summary) Findings {
	var f Findings
	if len(summaries) == 0 {
		return f
	}

	minBy := func(value func(aggregate.Summary) float64) string {
		best := summaries[0]
		for _, s := range summaries[1:] {
			if value(s) < value(best) {
				best = s
			}
		}

		return best.Algorithm
	}

	f.FastestEncryption = minBy(func(s aggregate.Summary) float64 {
		return s.MeanEncryptionTime
	})
	f.FastestDecryption = minBy(func(s aggregate.Summary) float64 {
		return s.MeanDecryptionTime
	})
	f.SmallestKey = minBy(func(s aggregate.Summary) float64 {
		return float64(s.KeySizeBits)
	})
	f.SmallestCipher = minBy(func(s aggregate.Summary) float64 {
		return s.MeanCiphertextSize
	})

	for _, s := range summaries {
		if s.QuantumResistant {
			f.QuantumResistant = append(f.QuantumResistant, s.Algorithm)
		}
	}

	return f
}

// Tradeoffs scores each algorithm. Security is q*(0.5+log10(bits)/5) with
// q=2 for quantum-resistant algorithms. Performance is the negated sum of
// the mean of both timings and log10(ciphertext)/10.
func Tradeoffs(summaries []aggregate.Summary) []Tradeoff {
	out := make([]Tradeoff, 0, len(summaries))

	for _, s := range summaries {
		q := 1.0
		if s.QuantumResistant {
			q = 2
		}

		timing := (s.MeanEncryptionTime + s.MeanDecryptionTime) / 2

		out = append(out, Tradeoff{
			Algorithm:   s.Algorithm,
			Security:    q * (0.5 + safeLog10(float64(s.KeySizeBits))/5),
			Performance: -(timing + safeLog10(s.MeanCiphertextSize)/10),
		})
	}

	return out
}

// Distributions computes per-algorithm encryption time spreads in order of
// first appearance.
func Distributions(records []harness.Record) []Distribution {
	times := make(map[string][]float64)
	order := make([]string, 0)

	for _, r := range records {
		if _, ok := times[r.Algorithm]; !ok {
			order = append(order, r.Algorithm)
		}

		times[r.Algorithm] = append(times[r.Algorithm], r.EncryptionTime)
	}

	out := make([]Distribution, 0, len(order))

	for _, name := range order {
		ts := times[name]
		slices.Sort(ts)

		out = append(out, Distribution{
			Algorithm: name,
			Min:       ts[0],
			Median:    median(ts),
			Max:       ts[len(ts)-1],
			Trials:    len(ts),
		})
	}

	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// safeLog10 treats non-positive inputs as 1 so empty ciphertexts score 0.
func safeLog10(x float64) float64 {
	if x <= 0 {
		return 0
	}

	return math.Log10(x)
}

func quantumLine(names []string) string {
	switch len(names) {
	case 0:
		return "None of the benchmarked algorithms are quantum-resistant."
	case 1:
		return names[0] + " is quantum-resistant, providing future-proofing " +
			"against quantum computing threats."
	default:
		return strings.Join(names, ", ") + " are quantum-resistant, " +
			"providing future-proofing against quantum computing threats."
	}
}
