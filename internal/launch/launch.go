// Package launch picks the first affordable marketplace offer and rents it.
package launch

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/emaland/gpulaunch/internal/offer"
)

// Marketplace is a backend that can search for, rent and release machines.
type Marketplace interface {
	Name() string
	Search(ctx context.Context, criteria offer.Criteria) (offer.SearchResult, error)
	Launch(ctx context.Context, offerID string) (offer.Handle, error)
	Destroy(ctx context.Context, handle offer.Handle) (offer.DestroyResult, error)
}

type Outcome int

const (
	Launched Outcome = iota
	NoOffers
	SearchFailed
	LaunchFailed
)

func (o Outcome) String() string {
	switch o {
	case Launched:
		return "launched"
	case NoOffers:
		return "no offers"
	case SearchFailed:
		return "search failed"
	case LaunchFailed:
		return "launch failed"
	}
	return "unknown"
}

// Result is what TryLaunch hands back. Err is set for SearchFailed and
// LaunchFailed; Offer is set once an offer was selected.
type Result struct {
	Outcome Outcome
	Handle  offer.Handle
	Offer   *offer.Offer
	Err     error
}

// LaunchedHandle returns the launched handle, or false for every other outcome.
func (r Result) LaunchedHandle() (offer.Handle, bool) {
	if r.Outcome != Launched {
		return "", false
	}
	return r.Handle, true
}

type Launcher struct {
	market Marketplace
	logger log.FieldLogger
}

func NewLauncher(market Marketplace, logger log.FieldLogger) *Launcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Launcher{market: market, logger: logger.WithField("provider", market.Name())}
}

func (l *Launcher) Market() Marketplace {
	return l.market
}

// Offers runs the marketplace query and drops everything above the
// criteria's price ceiling.
func (l *Launcher) Offers(ctx context.Context, criteria offer.Criteria) ([]offer.Offer, error) {
	res, err := l.market.Search(ctx, criteria)
	for _, d := range res.Diagnostics {
		l.logger.WithField("source", "search").Warn(d)
	}
	if err != nil {
		return nil, errors.Wrap(err, "searching offers")
	}

	filtered, err := offer.FilterByMaxPrice(res.Offers, criteria.MaxUSDPerHour)
	if err != nil {
		return nil, errors.Wrap(err, "filtering offers")
	}

	l.logger.WithFields(log.Fields{
		"found":    len(res.Offers),
		"eligible": len(filtered),
		"max":      criteria.MaxUSDPerHour,
	}).Debug("offers")
	return filtered, nil
}

// TryLaunch searches, keeps offers under the price ceiling and launches
// the first one. There is exactly one launch attempt; a failure is not
// retried on the next offer. Errors never escape: they are logged and
// reported through the result's outcome.
func (l *Launcher) TryLaunch(ctx context.Context, criteria offer.Criteria) Result {
	offers, err := l.Offers(ctx, criteria)
	if err != nil {
		l.logger.WithError(err).Error("try launch: search")
		return Result{Outcome: SearchFailed, Err: err}
	}
	if len(offers) == 0 {
		l.logger.WithField("gpu", criteria.GPUName).Info("try launch: no eligible offers")
		return Result{Outcome: NoOffers}
	}

	selected := offers[0]
	entry := l.logger.WithFields(log.Fields{
		"offer": selected.ID(),
		"price": selected.Get(offer.ColumnPrice),
	})
	entry.Info("try launch: launching")

	handle, err := l.market.Launch(ctx, selected.ID())
	if err != nil {
		entry.WithError(err).Error("try launch: launch")
		return Result{Outcome: LaunchFailed, Offer: &selected, Err: err}
	}

	entry.WithField("handle", handle).Info("try launch: launched")
	return Result{Outcome: Launched, Handle: handle, Offer: &selected}
}

// Destroy releases an instance. Runner errors are folded into a failed
// result so callers only see a boolean outcome.
func (l *Launcher) Destroy(ctx context.Context, handle offer.Handle) offer.DestroyResult {
	res, err := l.market.Destroy(ctx, handle)
	entry := l.logger.WithField("handle", handle)
	if err != nil {
		entry.WithError(err).Error("destroy")
		return offer.DestroyResult{Reason: err.Error()}
	}
	if !res.OK {
		entry.WithField("reason", res.Reason).Warn("destroy: not confirmed")
		return res
	}
	entry.Info("destroyed")
	return res
}
