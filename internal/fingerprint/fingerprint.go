// Package fingerprint computes MarketFingerprints from a set of per-book
// snapshots and the previous fingerprint for the same market: consensus
// line, first mover, velocity, confirmation, stability, and content hash.
package fingerprint

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/registry"
	"github.com/driftline/sentry/pkg/models"
	"github.com/driftline/sentry/pkg/oddsmath"
)

var halfUnit = decimal.RequireFromString("0.5")

// Service computes fingerprints, annotating per-book tiers from the
// registry.
type Service struct {
	registry *registry.Registry
}

// New builds a Service backed by reg.
func New(reg *registry.Registry) *Service {
	return &Service{registry: reg}
}

// Create builds a new MarketFingerprint from the current snapshots and the
// previous fingerprint for the same (event, market[, player]), following
// spec.md §4.5 exactly. prev may be nil for a market seen for the first
// time.
func (s *Service) Create(eventID, marketKey string, snapshots []models.BookSnapshot, prev *models.MarketFingerprint) models.MarketFingerprint {
	now := time.Now()

	annotated := make([]models.BookSnapshot, len(snapshots))
	for i, snap := range snapshots {
		snap.BookmakerTier = s.registry.BookmakerTier(snap.BookmakerKey)
		annotated[i] = snap
	}

	fp := models.MarketFingerprint{
		EventID:   eventID,
		MarketKey: marketKey,
		Timestamp: now,
		Snapshots: annotated,
	}
	if len(annotated) > 0 {
		fp.PlayerSlug = annotated[0].PlayerSlug()
	}

	lines := make([]decimal.Decimal, len(annotated))
	for i, snap := range annotated {
		lines[i] = snap.Line
	}

	consensus := decimal.Zero
	if len(lines) > 0 {
		median, err := oddsmath.LowerMedian(lines)
		if err == nil {
			consensus = median
		}
	}
	fp.ConsensusLine = consensus

	if prev != nil {
		fp.PreviousConsensusLine = prev.ConsensusLine
		fp.DeltaMagnitude = consensus.Sub(prev.ConsensusLine).Abs()
	} else {
		fp.PreviousConsensusLine = decimal.Zero
		fp.DeltaMagnitude = decimal.Zero
	}

	fp.ConfirmingBooks = countConfirming(annotated, consensus)

	if fp.DeltaMagnitude.GreaterThanOrEqual(halfUnit) {
		book, tier, at := firstMover(annotated, prev)
		fp.FirstMoverBook = book
		fp.FirstMoverTier = tier
		fp.FirstMoveTime = at
	} else if prev != nil {
		fp.FirstMoverBook = prev.FirstMoverBook
		fp.FirstMoverTier = prev.FirstMoverTier
		fp.FirstMoveTime = prev.FirstMoveTime
	}

	fp.Velocity = computeVelocity(fp.DeltaMagnitude, prev, now)

	if fp.FirstMoverTier == models.BookTierSharp {
		fp.RetailLag = computeRetailLag(annotated, consensus, fp.FirstMoveTime)
	}

	fp.LastReversalTime = computeReversal(prev, consensus, now)
	if prev != nil {
		fp.StabilityWindow = now.Sub(fp.LastReversalTime)
	} else {
		fp.StabilityWindow = 0
	}

	fp.ContentHash = contentHash(consensus, fp.FirstMoverBook, fp.ConfirmingBooks, annotated)

	return fp
}

func countConfirming(snapshots []models.BookSnapshot, consensus decimal.Decimal) int {
	count := 0
	for _, snap := range snapshots {
		if snap.Line.Sub(consensus).Abs().LessThanOrEqual(halfUnit) {
			count++
		}
	}
	return count
}

// firstMover finds the book whose current line differs from its own
// previous-fingerprint snapshot by >= 0.5, selecting the earliest timestamp;
// ties break by higher book tier, then lexical bookmakerKey.
func firstMover(current []models.BookSnapshot, prev *models.MarketFingerprint) (book string, tier models.BookTier, at time.Time) {
	if prev == nil {
		return "", "", time.Time{}
	}

	prevByBook := make(map[string]models.BookSnapshot, len(prev.Snapshots))
	for _, snap := range prev.Snapshots {
		prevByBook[snap.BookmakerKey] = snap
	}

	type mover struct {
		snapshot models.BookSnapshot
	}
	var movers []mover
	for _, snap := range current {
		prevSnap, ok := prevByBook[snap.BookmakerKey]
		if !ok {
			continue
		}
		if snap.Line.Sub(prevSnap.Line).Abs().GreaterThanOrEqual(halfUnit) {
			movers = append(movers, mover{snapshot: snap})
		}
	}
	if len(movers) == 0 {
		return "", "", time.Time{}
	}

	sort.Slice(movers, func(i, j int) bool {
		a, b := movers[i].snapshot, movers[j].snapshot
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if tierRank(a.BookmakerTier) != tierRank(b.BookmakerTier) {
			return tierRank(a.BookmakerTier) > tierRank(b.BookmakerTier)
		}
		return a.BookmakerKey < b.BookmakerKey
	})

	best := movers[0].snapshot
	return best.BookmakerKey, best.BookmakerTier, best.Timestamp
}

func tierRank(tier models.BookTier) int {
	switch tier {
	case models.BookTierSharp:
		return 2
	case models.BookTierMarket:
		return 1
	default:
		return 0
	}
}

func computeVelocity(delta decimal.Decimal, prev *models.MarketFingerprint, now time.Time) decimal.Decimal {
	if prev == nil {
		return decimal.Zero
	}
	gap := now.Sub(prev.Timestamp).Hours()
	if gap <= 0 {
		return decimal.Zero
	}
	return delta.Div(decimal.NewFromFloat(gap))
}

func computeRetailLag(snapshots []models.BookSnapshot, consensus decimal.Decimal, firstMoveTime time.Time) time.Duration {
	var earliest *models.BookSnapshot
	for i := range snapshots {
		snap := snapshots[i]
		if snap.BookmakerTier != models.BookTierRetail {
			continue
		}
		if snap.Line.Sub(consensus).Abs().GreaterThan(halfUnit) {
			continue
		}
		if earliest == nil || snap.Timestamp.Before(earliest.Timestamp) {
			earliest = &snap
		}
	}
	if earliest == nil || firstMoveTime.IsZero() {
		return 0
	}
	return earliest.Timestamp.Sub(firstMoveTime)
}

// computeReversal detects a sign flip between the most recent two consensus
// deltas, updating lastReversalTime when the sign differs from the prior
// delta's sign (both must be non-zero).
func computeReversal(prev *models.MarketFingerprint, consensus decimal.Decimal, now time.Time) time.Time {
	if prev == nil {
		return now
	}

	currentDelta := consensus.Sub(prev.ConsensusLine)
	priorDelta := prev.ConsensusLine.Sub(prev.PreviousConsensusLine)

	if !currentDelta.IsZero() && !priorDelta.IsZero() && signOf(currentDelta) != signOf(priorDelta) {
		return now
	}
	return prev.LastReversalTime
}

func signOf(d decimal.Decimal) int {
	switch {
	case d.IsPositive():
		return 1
	case d.IsNegative():
		return -1
	default:
		return 0
	}
}

type hashedBook struct {
	Name string          `json:"name"`
	Line decimal.Decimal `json:"line"`
}

type hashedFingerprint struct {
	ConsensusLine   decimal.Decimal `json:"consensus_line"`
	FirstMoverBook  string          `json:"first_mover_book"`
	ConfirmingBooks int             `json:"confirming_books"`
	Books           []hashedBook    `json:"books"`
}

func contentHash(consensus decimal.Decimal, firstMover string, confirming int, snapshots []models.BookSnapshot) string {
	books := make([]hashedBook, len(snapshots))
	for i, snap := range snapshots {
		books[i] = hashedBook{Name: snap.BookmakerKey, Line: snap.Line}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })

	payload := hashedFingerprint{
		ConsensusLine:   consensus,
		FirstMoverBook:  firstMover,
		ConfirmingBooks: confirming,
		Books:           books,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}

	sum := xxhash.Sum64(data)
	hex := toHex16(sum)
	return hex
}

const hexDigits = "0123456789abcdef"

func toHex16(v uint64) string {
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf)
}
