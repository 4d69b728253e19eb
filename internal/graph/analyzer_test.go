package graph

import (
	"fmt"
	"testing"

	"github.com/spendlens/engine/models"
)

func TestDetectSharedAccounts(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "acme", BankAccount: "DE-991", Amount: 500},
		{ID: "t2", VendorID: "globex", BankAccount: "DE-991", Amount: 750},
		{ID: "t3", VendorID: "initech", BankAccount: "DE-104", Amount: 300},
	}

	results := analyzer.Detect(transactions)

	flagged := resultsByType(results, models.AnomalySharedBankAccount)
	if len(flagged) != 2 {
		t.Fatalf("flagged %d transactions, want 2", len(flagged))
	}
	for _, r := range flagged {
		if r.PointID == "t3" {
			t.Error("transaction on a private account flagged")
		}
		if r.Score != 0.6 {
			t.Errorf("two-vendor shared account score = %v, want 0.6", r.Score)
		}
	}
}

func TestDetectSharedAccountScoreGrowsWithVendors(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := make([]models.TransactionNode, 4)
	for i := range transactions {
		transactions[i] = models.TransactionNode{
			ID:          fmt.Sprintf("t%d", i),
			VendorID:    fmt.Sprintf("vendor-%d", i),
			BankAccount: "SHARED",
			Amount:      100,
		}
	}

	results := analyzer.Detect(transactions)
	flagged := resultsByType(results, models.AnomalySharedBankAccount)
	if len(flagged) != 4 {
		t.Fatalf("flagged %d transactions, want 4", len(flagged))
	}
	// 4 vendors on one account: 0.6 + 0.2*2 = 1.0.
	for _, r := range flagged {
		if r.Score != 1.0 {
			t.Errorf("four-vendor shared account score = %v, want 1.0", r.Score)
		}
	}
}

func TestDetectBalancedCycle(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "a", TargetVendorID: "b", Amount: 1000},
		{ID: "t2", VendorID: "b", TargetVendorID: "c", Amount: 1050},
		{ID: "t3", VendorID: "c", TargetVendorID: "a", Amount: 980},
		{ID: "t4", VendorID: "a", TargetVendorID: "d", Amount: 5000},
	}

	results := analyzer.Detect(transactions)
	flagged := resultsByType(results, models.AnomalyCircularPayment)
	if len(flagged) != 3 {
		t.Fatalf("flagged %d transactions, want 3", len(flagged))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if flagged[i].PointID != want {
			t.Errorf("flagged[%d] = %s, want %s", i, flagged[i].PointID, want)
		}
		if flagged[i].Score != 0.9 {
			t.Errorf("cycle score = %v, want 0.9", flagged[i].Score)
		}
	}
}

func TestDetectUnbalancedCycleIgnored(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "a", TargetVendorID: "b", Amount: 1000},
		{ID: "t2", VendorID: "b", TargetVendorID: "c", Amount: 100},
		{ID: "t3", VendorID: "c", TargetVendorID: "a", Amount: 1000},
	}

	results := analyzer.Detect(transactions)
	if flagged := resultsByType(results, models.AnomalyCircularPayment); len(flagged) != 0 {
		t.Errorf("flagged %d transactions in an unbalanced cycle, want 0", len(flagged))
	}
}

func TestDetectTwoHopCycle(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "a", TargetVendorID: "b", Amount: 2000},
		{ID: "t2", VendorID: "b", TargetVendorID: "a", Amount: 1900},
	}

	results := analyzer.Detect(transactions)
	if flagged := resultsByType(results, models.AnomalyCircularPayment); len(flagged) != 2 {
		t.Errorf("flagged %d transactions, want 2", len(flagged))
	}
}

func TestDetectCycleHopBound(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	// Six hops exceeds the default bound of five.
	vendors := []string{"a", "b", "c", "d", "e", "f"}
	transactions := make([]models.TransactionNode, len(vendors))
	for i, v := range vendors {
		transactions[i] = models.TransactionNode{
			ID:             fmt.Sprintf("t%d", i),
			VendorID:       v,
			TargetVendorID: vendors[(i+1)%len(vendors)],
			Amount:         1000,
		}
	}

	results := analyzer.Detect(transactions)
	if flagged := resultsByType(results, models.AnomalyCircularPayment); len(flagged) != 0 {
		t.Errorf("flagged %d transactions beyond the hop bound, want 0", len(flagged))
	}
}

func TestDetectCycleFlaggedOnce(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "a", TargetVendorID: "b", Amount: 1000},
		{ID: "t2", VendorID: "b", TargetVendorID: "a", Amount: 1000},
	}

	results := analyzer.Detect(transactions)
	seen := make(map[string]int)
	for _, r := range resultsByType(results, models.AnomalyCircularPayment) {
		seen[r.PointID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("transaction %s flagged %d times", id, n)
		}
	}
}

func TestDetectConcentration(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	var transactions []models.TransactionNode
	for i := 0; i < 9; i++ {
		transactions = append(transactions, models.TransactionNode{
			ID:             fmt.Sprintf("base-%d", i),
			VendorID:       fmt.Sprintf("src-%d", i),
			TargetVendorID: fmt.Sprintf("dst-%d", i),
			Amount:         100,
		})
	}
	transactions = append(transactions, models.TransactionNode{
		ID:             "hot",
		VendorID:       "src-hot",
		TargetVendorID: "dst-hot",
		Amount:         10000,
	})

	results := analyzer.Detect(transactions)
	flagged := resultsByType(results, models.AnomalyUnusualVendorPair)
	if len(flagged) != 1 {
		t.Fatalf("flagged %d transactions, want 1", len(flagged))
	}
	if flagged[0].PointID != "hot" {
		t.Errorf("flagged %s, want hot", flagged[0].PointID)
	}
	if flagged[0].Score <= 0 || flagged[0].Score > 1 {
		t.Errorf("concentration score = %v out of (0,1]", flagged[0].Score)
	}
}

func TestDetectConcentrationNeedsPopulation(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	// Three pairs is below the minimum population for the z-score check.
	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "a", TargetVendorID: "x", Amount: 100},
		{ID: "t2", VendorID: "b", TargetVendorID: "y", Amount: 100},
		{ID: "t3", VendorID: "c", TargetVendorID: "z", Amount: 99999},
	}

	results := analyzer.Detect(transactions)
	if flagged := resultsByType(results, models.AnomalyUnusualVendorPair); len(flagged) != 0 {
		t.Errorf("flagged %d transactions with too few pairs, want 0", len(flagged))
	}
}

func TestDetectCleanBatch(t *testing.T) {
	analyzer := mustAnalyzer(t, Config{})

	transactions := []models.TransactionNode{
		{ID: "t1", VendorID: "acme", BankAccount: "DE-1", Amount: 100},
		{ID: "t2", VendorID: "globex", BankAccount: "DE-2", Amount: 200},
	}

	if results := analyzer.Detect(transactions); len(results) != 0 {
		t.Errorf("clean batch produced %d findings", len(results))
	}

	if results := analyzer.Detect(nil); len(results) != 0 {
		t.Errorf("empty batch produced %d findings", len(results))
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "zero config uses defaults", cfg: Config{}},
		{name: "explicit settings", cfg: Config{MaxCycleLength: 4, AmountTolerance: 0.1, ConcentrationSigma: 3}},
		{name: "cycle length of one", cfg: Config{MaxCycleLength: 1}, wantErr: true},
		{name: "negative tolerance", cfg: Config{AmountTolerance: -0.5}, wantErr: true},
		{name: "negative sigma", cfg: Config{ConcentrationSigma: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAnalyzer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func resultsByType(results []models.AnomalyResult, typ models.AnomalyType) []models.AnomalyResult {
	var out []models.AnomalyResult
	for _, r := range results {
		if r.AnomalyType == typ {
			out = append(out, r)
		}
	}
	return out
}

func mustAnalyzer(t *testing.T, cfg Config) *Analyzer {
	t.Helper()
	analyzer, err := NewAnalyzer(cfg)
	if err != nil {
		t.Fatalf("NewAnalyzer() error: %v", err)
	}
	return analyzer
}
