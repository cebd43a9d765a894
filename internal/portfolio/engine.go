// Package portfolio implements the portfolio replay engine: it turns
// an ordered sequence of strategy trade blueprints into positions, a
// canonical append-only event ledger, and executed fills, enforcing
// capacity limits, position sizing, execution-cost modeling, and two
// kinds of systemic resets.
package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"solana-strategy-tester/internal/domain"
	"solana-strategy-tester/internal/solanaaddr"
)

// Engine replays blueprints against one portfolio configuration.
// Replay is a pure function of its inputs: identical (blueprints,
// config) always produce byte-identical results. The engine is
// stateless between Replay calls and safe for sequential reuse.
type Engine struct {
	cfg  domain.PortfolioConfig
	exec *ExecModel
}

// NewEngine validates the configuration and creates an engine.
func NewEngine(cfg domain.PortfolioConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid portfolio config: %w", err)
	}
	return &Engine{
		cfg:  cfg,
		exec: NewExecModel(cfg.Execution),
	}, nil
}

// Replay processes blueprints in entry-time order (stable sort, ties
// broken by input order) and returns the assembled result. Processing
// is strictly sequential; the only clock is the blueprints' own
// timestamps. Fatal contract violations abort the run.
func (e *Engine) Replay(blueprints []*domain.TradeBlueprint) (*domain.PortfolioResult, error) {
	ordered := make([]*domain.TradeBlueprint, len(blueprints))
	copy(ordered, blueprints)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTimeMs < ordered[j].EntryTimeMs
	})

	s := newReplayState(e.cfg)

	endTimeMs := int64(0)
	for _, bp := range ordered {
		nowMs := bp.EntryTimeMs

		// Forced closes and resets may need to fire due to the
		// passage of time even if this blueprint never opens.
		if err := e.expireMaxHold(s, nowMs); err != nil {
			return nil, err
		}
		if err := e.evaluateResets(s, nowMs); err != nil {
			return nil, err
		}

		s.seen++
		if last := bp.LastTimestampMs(); last > endTimeMs {
			endTimeMs = last
		}

		if err := e.processBlueprint(s, bp); err != nil {
			return nil, err
		}
		s.sampleEquity(bp.LastTimestampMs())
	}

	if err := e.finalize(s, endTimeMs); err != nil {
		return nil, err
	}

	return &domain.PortfolioResult{
		Config:      e.cfg,
		Positions:   s.all,
		Events:      s.ledger.Events(),
		EquityCurve: s.equityCurve,
		Skipped:     s.skipped,
		Stats:       buildStats(s),
	}, nil
}

// processBlueprint validates, admits, and replays one blueprint.
// Malformed fraction sums and orderings are fatal; missing data is a
// recoverable skip; capacity refusal is a silent business decision.
func (e *Engine) processBlueprint(s *replayState, bp *domain.TradeBlueprint) error {
	if err := bp.Validate(); err != nil {
		switch {
		case errors.Is(err, domain.ErrFractionSum), errors.Is(err, domain.ErrExitsUnsorted):
			return fmt.Errorf("blueprint %s: %w", bp.SignalID, err)
		case errors.Is(err, domain.ErrNoEntryPrice):
			s.skip(bp.SignalID, domain.ReasonNoEntry, err.Error())
			return nil
		default:
			s.skip(bp.SignalID, domain.ReasonError, err.Error())
			return nil
		}
	}
	if bp.EntryPriceRaw <= 0 {
		s.skip(bp.SignalID, domain.ReasonNoEntry, "no usable entry price")
		return nil
	}
	if err := solanaaddr.Validate(bp.ContractAddress); err != nil {
		s.skip(bp.SignalID, domain.ReasonError, err.Error())
		return nil
	}

	if !canOpen(s, &e.cfg) || positionSize(s, &e.cfg) <= 0 {
		s.blockedInCycle++
		s.blockedTotal++
		return nil
	}

	p, err := e.openPosition(s, bp)
	if err != nil {
		return err
	}

	for _, pe := range bp.PartialExits {
		if err := e.applyPartialExit(s, p, pe); err != nil {
			return err
		}
	}

	if bp.FinalExit != nil {
		reason := bp.FinalExit.Reason
		if !reason.Valid() {
			reason = domain.NormalizeReason(string(reason))
		}
		rawExit := p.LastMarkRawPrice()
		targetMult := p.MarkMultiple()
		if tm := bp.FinalExit.TargetMultiple; tm > 0 {
			rawExit = bp.EntryPriceRaw * tm
			targetMult = tm
		}
		if err := e.closePosition(s, p, bp.FinalExit.TimestampMs, reason, rawExit, targetMult); err != nil {
			return err
		}
	}
	return nil
}

// expireMaxHold closes every open position whose hold-time limit has
// elapsed at the given logical time. Closes happen at the deadline,
// not at the observation time.
func (e *Engine) expireMaxHold(s *replayState, nowMs int64) error {
	if e.cfg.MaxHoldMinutes <= 0 {
		return nil
	}
	snapshot := make([]*domain.Position, len(s.open))
	copy(snapshot, s.open)
	for _, p := range snapshot {
		deadline := p.EntryTimeMs + e.cfg.MaxHoldMinutes*60_000
		if nowMs >= deadline {
			if err := e.closePosition(s, p, forcedCloseTs(p, deadline), domain.ReasonMaxHold, p.LastMarkRawPrice(), p.MarkMultiple()); err != nil {
				return err
			}
		}
	}
	return nil
}

// forcedCloseTs clamps a forced-close timestamp so it never precedes
// the position's last fill; per-position event timestamps must be
// non-decreasing.
func forcedCloseTs(p *domain.Position, tsMs int64) int64 {
	if n := len(p.Meta.Fills); n > 0 && p.Meta.Fills[n-1].TimestampMs > tsMs {
		return p.Meta.Fills[n-1].TimestampMs
	}
	return tsMs
}

// finalize force-closes the remaining book at the end of the replay.
// With a hold limit configured, every remaining position closes at its
// own deadline with max_hold_minutes; the deadline is a known point on
// the logical clock even when it lies past the last blueprint. Without
// a hold limit, the remainder is marked to its last observed price.
func (e *Engine) finalize(s *replayState, endTimeMs int64) error {
	snapshot := make([]*domain.Position, len(s.open))
	copy(snapshot, s.open)
	lastMs := endTimeMs
	for _, p := range snapshot {
		tsMs := endTimeMs
		reason := domain.ReasonManualClose
		if e.cfg.MaxHoldMinutes > 0 {
			tsMs = p.EntryTimeMs + e.cfg.MaxHoldMinutes*60_000
			reason = domain.ReasonMaxHold
		}
		tsMs = forcedCloseTs(p, tsMs)
		if tsMs > lastMs {
			lastMs = tsMs
		}
		if err := e.closePosition(s, p, tsMs, reason, p.LastMarkRawPrice(), p.MarkMultiple()); err != nil {
			return err
		}
	}
	if s.seen > 0 {
		s.sampleEquity(lastMs)
	}
	return nil
}

func (s *replayState) skip(signalID string, reason domain.Reason, detail string) {
	s.skipped = append(s.skipped, domain.SkippedBlueprint{
		SignalID: signalID,
		Reason:   reason,
		Detail:   detail,
	})
}
