package classifier

import (
	"testing"

	"solana-copy-watch/internal/domain"
)

const (
	watchedAddr = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	otherAddr   = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	usdcMint    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func watchOnly(addrs ...string) WatchSet {
	set := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		set[a] = true
	}
	return func(a string) bool { return set[a] }
}

func TestClassify_Buy(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig1",
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Buy",
			"mint=" + usdcMint + " symbol=USDC",
			"from=" + watchedAddr + " lamports=250000000",
		},
	}

	ev := c.Classify(log, watchOnly(watchedAddr), 1700000000000)

	if ev.Type != domain.EventTypeBuy {
		t.Fatalf("type = %q, want BUY", ev.Type)
	}
	if ev.WalletSource != watchedAddr {
		t.Errorf("wallet source = %q, want %q", ev.WalletSource, watchedAddr)
	}
	if ev.TokenMint != usdcMint {
		t.Errorf("token mint = %q, want %q", ev.TokenMint, usdcMint)
	}
	if ev.TokenSymbol != "USDC" {
		t.Errorf("token symbol = %q, want USDC", ev.TokenSymbol)
	}
	if ev.AmountSol != 0.25 {
		t.Errorf("amount = %v, want 0.25", ev.AmountSol)
	}
	if ev.Timestamp != 1700000000000 {
		t.Errorf("timestamp = %v, want caller-supplied value", ev.Timestamp)
	}
}

func TestClassify_Sell(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig2",
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Sell",
			"mint=" + usdcMint,
			"from=" + watchedAddr + " sol_amount=1000000000",
		},
	}

	ev := c.Classify(log, watchOnly(watchedAddr), 1)
	if ev.Type != domain.EventTypeSell {
		t.Fatalf("type = %q, want SELL", ev.Type)
	}
	if ev.AmountSol != 1.0 {
		t.Errorf("amount = %v, want 1.0", ev.AmountSol)
	}
}

func TestClassify_Transfer(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig3",
		Logs: []string{
			"Program " + SystemProgram + " invoke [1]",
			"Program log: Instruction: Transfer",
			"from=" + watchedAddr + " to=" + otherAddr + " lamports=5000000000",
		},
	}

	ev := c.Classify(log, watchOnly(watchedAddr), 1)
	if ev.Type != domain.EventTypeTransfer {
		t.Fatalf("type = %q, want TRANSFER", ev.Type)
	}
	if ev.DestinationWallet != otherAddr {
		t.Errorf("destination = %q, want %q", ev.DestinationWallet, otherAddr)
	}
	if ev.AmountSol != 5.0 {
		t.Errorf("amount = %v, want 5.0", ev.AmountSol)
	}
}

func TestClassify_TokenTransferNotPlainTransfer(t *testing.T) {
	c := New()

	// SPL token transfers invoke the token program; they must not be
	// reported as SOL transfers.
	log := RawLog{
		Signature: "sig4",
		Logs: []string{
			"Program " + SystemProgram + " invoke [1]",
			"Program " + TokenProgram + " invoke [2]",
			"Program log: Instruction: Transfer",
			"from=" + watchedAddr + " to=" + otherAddr + " lamports=1000000",
		},
	}

	ev := c.Classify(log, watchOnly(watchedAddr), 1)
	if ev.Type == domain.EventTypeTransfer {
		t.Fatal("token-program transfer classified as plain SOL transfer")
	}
}

func TestClassify_ErroredLogIsUnknown(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig5",
		Err:       map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Buy",
			"mint=" + usdcMint,
			"from=" + watchedAddr,
		},
	}

	if ev := c.Classify(log, watchOnly(watchedAddr), 1); ev.Type != domain.EventTypeUnknown {
		t.Errorf("errored transaction classified as %q, want UNKNOWN", ev.Type)
	}
}

func TestClassify_NoWatchedAddressIsUnknown(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig6",
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Buy",
			"mint=" + usdcMint,
			"from=" + otherAddr + " lamports=250000000",
		},
	}

	if ev := c.Classify(log, watchOnly(watchedAddr), 1); ev.Type != domain.EventTypeUnknown {
		t.Errorf("log with no watched participant classified as %q, want UNKNOWN", ev.Type)
	}
}

func TestClassify_SourceFallsBackToMentionedWatchedAddress(t *testing.T) {
	c := New()

	// No from= field; the watched address only appears mid-line.
	log := RawLog{
		Signature: "sig7",
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Buy",
			"mint=" + usdcMint,
			"account " + watchedAddr + " balance change lamports=100000000",
		},
	}

	ev := c.Classify(log, watchOnly(watchedAddr), 1)
	if ev.Type != domain.EventTypeBuy {
		t.Fatalf("type = %q, want BUY", ev.Type)
	}
	if ev.WalletSource != watchedAddr {
		t.Errorf("wallet source = %q, want fallback to %q", ev.WalletSource, watchedAddr)
	}
}

func TestClassify_WSOLMintBlanked(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig8",
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Buy",
			"mint=" + WSOL,
			"from=" + watchedAddr + " lamports=100000000",
		},
	}

	ev := c.Classify(log, watchOnly(watchedAddr), 1)
	if ev.Type != domain.EventTypeBuy {
		t.Fatalf("type = %q, want BUY", ev.Type)
	}
	if ev.TokenMint != "" {
		t.Errorf("wrapped SOL mint should be blanked, got %q", ev.TokenMint)
	}
}

func TestClassify_TransferWithoutDestinationIsUnknown(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig9",
		Logs: []string{
			"Program " + SystemProgram + " invoke [1]",
			"Program log: Instruction: Transfer",
			"from=" + watchedAddr + " lamports=5000000000",
		},
	}

	if ev := c.Classify(log, watchOnly(watchedAddr), 1); ev.Type != domain.EventTypeUnknown {
		t.Errorf("transfer with no destination classified as %q, want UNKNOWN", ev.Type)
	}
}

func TestClassify_UnmatchedPatternIsUnknown(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig10",
		Logs: []string{
			"Program " + watchedAddr + " invoke [1]",
			"Program log: some unrelated output",
		},
	}

	if ev := c.Classify(log, watchOnly(watchedAddr), 1); ev.Type != domain.EventTypeUnknown {
		t.Errorf("unmatched log classified as %q, want UNKNOWN", ev.Type)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New()

	log := RawLog{
		Signature: "sig11",
		Logs: []string{
			"Program " + TokenProgram + " invoke [1]",
			"Program log: Instruction: Buy",
			"mint=" + usdcMint + " symbol=USDC",
			"from=" + watchedAddr + " lamports=250000000",
		},
	}
	watched := watchOnly(watchedAddr)

	first := c.Classify(log, watched, 42)
	for i := 0; i < 100; i++ {
		if got := c.Classify(log, watched, 42); got != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}
