// Package classifier turns raw transaction logs into typed domain
// events against a set of watched addresses. Classification is pure
// and deterministic: the same log and watch set always produce the
// same event.
package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/solana"
)

// Known program IDs.
const (
	// TokenProgram is the SPL token program ID. Its invocation marks
	// token movement within a transaction.
	TokenProgram = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	// SystemProgram is the Solana system program ID, invoked for plain
	// SOL transfers.
	SystemProgram = "11111111111111111111111111111111"
	// WSOL is the Wrapped SOL mint address.
	WSOL = "So11111111111111111111111111111111111111112"
)

const lamportsPerSol = 1_000_000_000

// RawLog is one transaction log record as delivered by the stream.
type RawLog struct {
	Signature string
	Err       interface{}
	Logs      []string
}

// WatchSet reports whether an address is currently watched.
type WatchSet func(address string) bool

// Classifier parses transaction log lines into ParsedEvents.
type Classifier struct {
	buyPattern      *regexp.Regexp
	sellPattern     *regexp.Regexp
	transferPattern *regexp.Regexp
	mintPattern     *regexp.Regexp
	symbolPattern   *regexp.Regexp
	fromPattern     *regexp.Regexp
	toPattern       *regexp.Regexp
	lamportsPattern *regexp.Regexp
	addressPattern  *regexp.Regexp
}

// New creates a classifier with all patterns compiled.
func New() *Classifier {
	return &Classifier{
		buyPattern:      regexp.MustCompile(`Program log: Instruction: Buy`),
		sellPattern:     regexp.MustCompile(`Program log: Instruction: Sell`),
		transferPattern: regexp.MustCompile(`Program log: Instruction: Transfer`),
		mintPattern:     regexp.MustCompile(`mint=([A-Za-z0-9]{32,44})`),
		symbolPattern:   regexp.MustCompile(`symbol=([A-Za-z0-9$]{1,16})`),
		fromPattern:     regexp.MustCompile(`from=([A-Za-z0-9]{32,44})`),
		toPattern:       regexp.MustCompile(`to=([A-Za-z0-9]{32,44})`),
		lamportsPattern: regexp.MustCompile(`(?:lamports|sol_amount)[=:]\s*(\d+)`),
		addressPattern:  regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`),
	}
}

// Classify produces a typed event for one raw log. Errored logs and
// logs implicating no watched address come back as Unknown. The
// timestamp is supplied by the caller so classification stays
// deterministic.
func (c *Classifier) Classify(log RawLog, watched WatchSet, timestamp int64) domain.ParsedEvent {
	unknown := domain.ParsedEvent{
		Type:      domain.EventTypeUnknown,
		Signature: log.Signature,
		Timestamp: timestamp,
	}

	// Errored transactions never produce events.
	if log.Err != nil {
		return unknown
	}

	var (
		tokenInvoked  bool
		systemInvoked bool
		buy, sell     bool
		transfer      bool
		mint, symbol  string
		from, to      string
		lamports      uint64
	)

	for _, line := range log.Logs {
		if strings.Contains(line, "Program "+TokenProgram+" invoke") {
			tokenInvoked = true
		}
		if strings.Contains(line, "Program "+SystemProgram+" invoke") {
			systemInvoked = true
		}
		if c.buyPattern.MatchString(line) {
			buy = true
		}
		if c.sellPattern.MatchString(line) {
			sell = true
		}
		if c.transferPattern.MatchString(line) {
			transfer = true
		}
		if m := c.mintPattern.FindStringSubmatch(line); m != nil && mint == "" {
			mint = m[1]
		}
		if m := c.symbolPattern.FindStringSubmatch(line); m != nil && symbol == "" {
			symbol = m[1]
		}
		if m := c.fromPattern.FindStringSubmatch(line); m != nil && from == "" {
			from = m[1]
		}
		if m := c.toPattern.FindStringSubmatch(line); m != nil && to == "" {
			to = m[1]
		}
		if m := c.lamportsPattern.FindStringSubmatch(line); m != nil && lamports == 0 {
			if v, err := strconv.ParseUint(m[1], 10, 64); err == nil {
				lamports = v
			}
		}
	}

	source := c.resolveSource(log.Logs, from, watched)
	if source == "" || !solana.IsValidAddress(source) {
		return unknown
	}

	amountSol := float64(lamports) / lamportsPerSol
	// WSOL appearing as the mint means the "token" side is just SOL.
	if mint == WSOL {
		mint = ""
	}

	switch {
	case tokenInvoked && buy:
		return domain.ParsedEvent{
			Type:         domain.EventTypeBuy,
			WalletSource: source,
			TokenMint:    mint,
			TokenSymbol:  symbol,
			AmountSol:    amountSol,
			Signature:    log.Signature,
			Timestamp:    timestamp,
		}
	case tokenInvoked && sell:
		return domain.ParsedEvent{
			Type:         domain.EventTypeSell,
			WalletSource: source,
			TokenMint:    mint,
			TokenSymbol:  symbol,
			AmountSol:    amountSol,
			Signature:    log.Signature,
			Timestamp:    timestamp,
		}
	case systemInvoked && transfer && !tokenInvoked:
		if to == "" || !solana.IsValidAddress(to) {
			return unknown
		}
		return domain.ParsedEvent{
			Type:              domain.EventTypeTransfer,
			WalletSource:      source,
			AmountSol:         amountSol,
			DestinationWallet: to,
			Signature:         log.Signature,
			Timestamp:         timestamp,
		}
	default:
		return unknown
	}
}

// resolveSource picks the originating wallet: an explicit from= field
// wins when watched, otherwise the first watched address mentioned
// anywhere in the log text.
func (c *Classifier) resolveSource(logs []string, from string, watched WatchSet) string {
	if from != "" && watched(from) {
		return from
	}

	for _, line := range logs {
		for _, candidate := range c.addressPattern.FindAllString(line, -1) {
			if watched(candidate) {
				return candidate
			}
		}
	}
	return ""
}
