package graph

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spendlens/engine/models"
)

// Default analyzer settings.
const (
	DefaultMaxCycleLength     = 5
	DefaultAmountTolerance    = 0.2
	DefaultConcentrationSigma = 2.5
)

// minPairsForConcentration is the smallest pair population that gives the
// concentration check a meaningful distribution to compare against.
const minPairsForConcentration = 4

// Config tunes the structural fraud checks. Zero values fall back to
// defaults; invalid values are rejected at construction.
type Config struct {
	MaxCycleLength     int     // maximum hops in a payment cycle
	AmountTolerance    float64 // relative spread allowed for a "balanced" cycle
	ConcentrationSigma float64 // z-score cutoff for vendor-pair concentration
}

// Analyzer detects structural fraud signatures across a transaction batch:
// settlement accounts shared by unrelated vendors, balanced circular payment
// chains, and anomalous vendor-pair concentration. It holds no state between
// calls.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer validates the configuration and builds an analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.MaxCycleLength < 0 || cfg.AmountTolerance < 0 || cfg.ConcentrationSigma < 0 {
		return nil, fmt.Errorf("graph analyzer settings must be non-negative")
	}
	if cfg.MaxCycleLength == 1 {
		return nil, fmt.Errorf("max cycle length must be at least 2, got %d", cfg.MaxCycleLength)
	}

	if cfg.MaxCycleLength == 0 {
		cfg.MaxCycleLength = DefaultMaxCycleLength
	}
	if cfg.AmountTolerance == 0 {
		cfg.AmountTolerance = DefaultAmountTolerance
	}
	if cfg.ConcentrationSigma == 0 {
		cfg.ConcentrationSigma = DefaultConcentrationSigma
	}

	return &Analyzer{cfg: cfg}, nil
}

// Detect runs all three structural checks over the batch. A clean batch
// returns an empty slice; empty input never fails.
func (a *Analyzer) Detect(transactions []models.TransactionNode) []models.AnomalyResult {
	results := make([]models.AnomalyResult, 0)
	results = append(results, a.detectSharedAccounts(transactions)...)
	results = append(results, a.detectCycles(transactions)...)
	results = append(results, a.detectConcentration(transactions)...)
	return results
}

// detectSharedAccounts flags every transaction on a settlement account that
// more than one distinct vendor pays into.
func (a *Analyzer) detectSharedAccounts(transactions []models.TransactionNode) []models.AnomalyResult {
	vendorsByAccount := make(map[string]map[string]bool)
	txsByAccount := make(map[string][]string)

	for _, tx := range transactions {
		if tx.BankAccount == "" || tx.VendorID == "" {
			continue
		}
		if vendorsByAccount[tx.BankAccount] == nil {
			vendorsByAccount[tx.BankAccount] = make(map[string]bool)
		}
		vendorsByAccount[tx.BankAccount][tx.VendorID] = true
		txsByAccount[tx.BankAccount] = append(txsByAccount[tx.BankAccount], tx.ID)
	}

	var results []models.AnomalyResult
	for account, vendors := range vendorsByAccount {
		if len(vendors) < 2 {
			continue
		}
		score := math.Min(0.6+0.2*float64(len(vendors)-2), 1.0)
		for _, txID := range txsByAccount[account] {
			results = append(results, models.AnomalyResult{
				PointID:     txID,
				IsAnomaly:   true,
				Score:       score,
				AnomalyType: models.AnomalySharedBankAccount,
				Details:     fmt.Sprintf("account %s receives payments for %d distinct vendors", account, len(vendors)),
			})
		}
	}

	sortResults(results)
	return results
}

type edge struct {
	to     string
	txID   string
	amount float64
}

// detectCycles searches the vendor-to-vendor transfer graph for directed
// cycles up to the configured hop bound whose amounts are roughly balanced,
// a classic layering signature. The walk is an iterative DFS with an
// explicit stack; each cycle is enumerated once by anchoring it at its
// lexicographically smallest vendor.
func (a *Analyzer) detectCycles(transactions []models.TransactionNode) []models.AnomalyResult {
	adjacency := make(map[string][]edge)
	for _, tx := range transactions {
		if tx.VendorID == "" || tx.TargetVendorID == "" {
			continue
		}
		adjacency[tx.VendorID] = append(adjacency[tx.VendorID], edge{
			to:     tx.TargetVendorID,
			txID:   tx.ID,
			amount: tx.Amount,
		})
	}

	starts := make([]string, 0, len(adjacency))
	for vendor := range adjacency {
		starts = append(starts, vendor)
	}
	sort.Strings(starts)

	flagged := make(map[string]string) // tx id -> cycle description
	for _, start := range starts {
		a.walkCyclesFrom(start, adjacency, flagged)
	}

	results := make([]models.AnomalyResult, 0, len(flagged))
	for txID, detail := range flagged {
		results = append(results, models.AnomalyResult{
			PointID:     txID,
			IsAnomaly:   true,
			Score:       0.9,
			AnomalyType: models.AnomalyCircularPayment,
			Details:     detail,
		})
	}

	sortResults(results)
	return results
}

type frame struct {
	vendor string
	next   int
}

func (a *Analyzer) walkCyclesFrom(start string, adjacency map[string][]edge, flagged map[string]string) {
	stack := []frame{{vendor: start}}
	path := make([]edge, 0, a.cfg.MaxCycleLength)
	onPath := map[string]bool{start: true}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		edges := adjacency[f.vendor]

		if f.next >= len(edges) {
			stack = stack[:len(stack)-1]
			delete(onPath, f.vendor)
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			continue
		}

		e := edges[f.next]
		f.next++

		if e.to == start {
			// Closing the loop; require at least two hops.
			if len(path) >= 1 {
				cycle := append(append([]edge{}, path...), e)
				if a.isBalanced(cycle) {
					detail := describeCycle(start, cycle)
					for _, c := range cycle {
						flagged[c.txID] = detail
					}
				}
			}
			continue
		}

		// Anchor each cycle at its smallest vendor so it is found once.
		if e.to < start || onPath[e.to] {
			continue
		}
		if len(path)+1 >= a.cfg.MaxCycleLength {
			continue
		}

		path = append(path, e)
		onPath[e.to] = true
		stack = append(stack, frame{vendor: e.to})
	}
}

// isBalanced reports whether the cycle's edge amounts stay within the
// configured relative tolerance of each other.
func (a *Analyzer) isBalanced(cycle []edge) bool {
	lo, hi := cycle[0].amount, cycle[0].amount
	for _, e := range cycle[1:] {
		if e.amount < lo {
			lo = e.amount
		}
		if e.amount > hi {
			hi = e.amount
		}
	}
	if hi <= 0 {
		return false
	}
	return (hi-lo)/hi <= a.cfg.AmountTolerance
}

func describeCycle(start string, cycle []edge) string {
	hops := make([]string, 0, len(cycle)+1)
	hops = append(hops, start)
	for _, e := range cycle {
		hops = append(hops, e.to)
	}
	return fmt.Sprintf("balanced %d-hop payment cycle %s", len(cycle), strings.Join(hops, "->"))
}

type pairStats struct {
	count  int
	amount float64
	txIDs  []string
}

// detectConcentration flags vendor pairs whose transfer count or total
// amount is a statistical outlier against all pairs in the batch.
func (a *Analyzer) detectConcentration(transactions []models.TransactionNode) []models.AnomalyResult {
	pairs := make(map[string]*pairStats)
	for _, tx := range transactions {
		if tx.VendorID == "" || tx.TargetVendorID == "" {
			continue
		}
		key := tx.VendorID + "->" + tx.TargetVendorID
		if pairs[key] == nil {
			pairs[key] = &pairStats{}
		}
		pairs[key].count++
		pairs[key].amount += tx.Amount
		pairs[key].txIDs = append(pairs[key].txIDs, tx.ID)
	}
	if len(pairs) < minPairsForConcentration {
		return nil
	}

	counts := make([]float64, 0, len(pairs))
	amounts := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		counts = append(counts, float64(p.count))
		amounts = append(amounts, p.amount)
	}
	meanCount, sdCount := meanStddev(counts)
	meanAmount, sdAmount := meanStddev(amounts)

	var results []models.AnomalyResult
	for key, p := range pairs {
		var z float64
		if sdCount > 0 {
			z = math.Max(z, (float64(p.count)-meanCount)/sdCount)
		}
		if sdAmount > 0 {
			z = math.Max(z, (p.amount-meanAmount)/sdAmount)
		}
		if z <= a.cfg.ConcentrationSigma {
			continue
		}

		score := math.Min(z/(2*a.cfg.ConcentrationSigma), 1.0)
		detail := fmt.Sprintf("pair %s concentrates %d transfers totaling %.2f", key, p.count, p.amount)
		for _, txID := range p.txIDs {
			results = append(results, models.AnomalyResult{
				PointID:     txID,
				IsAnomaly:   true,
				Score:       score,
				AnomalyType: models.AnomalyUnusualVendorPair,
				Details:     detail,
			})
		}
	}

	sortResults(results)
	return results
}

func meanStddev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}

func sortResults(results []models.AnomalyResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].PointID < results[j].PointID
	})
}
