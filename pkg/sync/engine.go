package sync

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sidkik/studymirror/pkg/catalog"
	"github.com/sidkik/studymirror/pkg/errors"
	"github.com/sidkik/studymirror/pkg/metadata"
	"github.com/sidkik/studymirror/pkg/mirror"
)

// DefaultBackoff is how long the engine pauses after a study fails before
// moving on to the next study.
const DefaultBackoff = 10 * time.Second

// Options configures an Engine.
type Options struct {
	Catalog catalog.Client
	Store   *mirror.Store

	// Log defaults to the standard logrus logger.
	Log logrus.FieldLogger

	// Clock is used to pause after failures. It defaults to the real clock.
	Clock clockwork.Clock

	// Backoff defaults to DefaultBackoff.
	Backoff time.Duration
}

// Engine mirrors studies from the catalog into the store.
type Engine struct {
	catalog catalog.Client
	store   *mirror.Store
	log     logrus.FieldLogger
	clock   clockwork.Clock
	backoff time.Duration
}

// outcome is the result of running the pipeline for a single study.
type outcome struct {
	// failure is set if the study couldn't be mirrored because of a transport
	// error. The run continues, and the study is retried on the next run.
	failure error
}

// New creates a new Engine.
func New(opts Options) *Engine {
	e := &Engine{
		catalog: opts.Catalog,
		store:   opts.Store,
		log:     opts.Log,
		clock:   opts.Clock,
		backoff: opts.Backoff,
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.backoff <= 0 {
		e.backoff = DefaultBackoff
	}
	return e
}

// SyncAll mirrors every stale study in the catalog. Failing to list the
// catalog is fatal. Transport failures for individual studies are not: the
// studies are reported as failed, and the run continues.
func (e *Engine) SyncAll(ctx context.Context) (Report, error) {
	var report Report

	e.log.Info("Fetching list of studies...")
	studies, err := e.catalog.ListStudies(ctx)
	if err != nil {
		if !errors.IsCatalogUnavailable(err) {
			err = errors.CatalogUnavailable{Err: err}
		}
		return report, errors.WithContext(err, "list studies")
	}
	e.log.WithField("count", len(studies)).Debug("Listed studies")

	for i, study := range studies {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := e.studyLog(study)
		log.WithField("state", StatePending).Debug("Checking whether study is mirrored")

		// The local state is inspected right before the fetch so that the
		// decision is based on the latest snapshot.
		if !e.store.IsStale(study) {
			log.Info("Already downloaded")
			report.add(study, StateSkipped, nil)
			continue
		}

		hasNext := i < len(studies)-1
		if err := e.syncAndRecord(ctx, study, &report, hasNext); err != nil {
			return report, err
		}
	}
	return report, nil
}

// SyncOne mirrors the study with the given identifier, even if the mirror is
// already up to date. An unknown identifier is fatal.
func (e *Engine) SyncOne(ctx context.Context, id string) (Report, error) {
	var report Report

	study, err := e.catalog.GetStudy(ctx, id)
	if err != nil {
		return report, errors.WithContext(err, "get study")
	}

	if err := e.syncAndRecord(ctx, study, &report, false); err != nil {
		return report, err
	}
	return report, nil
}

// syncAndRecord runs the pipeline for `study`, and records the result in
// `report`. After a failure, it pauses if there are more studies to sync.
// Only errors that should stop the run are returned.
func (e *Engine) syncAndRecord(ctx context.Context, study catalog.Study,
	report *Report, hasNext bool) error {

	log := e.studyLog(study)
	log.WithField("state", StateFetching).Info("Downloading")

	res, err := e.syncStudy(ctx, study)
	if err != nil {
		report.add(study, StateFailed, err)
		return errors.WithContext(err, "sync "+study.ID)
	}

	if res.failure == nil {
		log.WithField("state", StateMirrored).Info("Mirrored")
		report.add(study, StateMirrored, nil)
		return nil
	}

	report.add(study, StateFailed, res.failure)
	log.WithError(res.failure).Warn("Caught server error")
	if !hasNext {
		return nil
	}

	log.WithField("backoff", e.backoff).Info("Ignoring error and pausing before the next study")
	select {
	case <-e.clock.After(e.backoff):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncStudy fetches both artifacts of the study, and writes them to the
// store. Transport failures are returned in the outcome. All other errors are
// bugs, and are returned directly.
func (e *Engine) syncStudy(ctx context.Context, study catalog.Study) (outcome, error) {
	data, err := e.catalog.FetchData(ctx, study)
	if err != nil {
		return classify(err)
	}
	defer data.Close()

	variables, err := e.catalog.FetchVariables(ctx, study)
	if err != nil {
		return classify(err)
	}

	withVariables := study
	withVariables.Variables = variables
	doc, err := metadata.Serialize(withVariables)
	if err != nil {
		return outcome{}, err
	}

	// The writes are independent. Both are attempted even if the first one
	// fails, but the study is only fresh if both succeed.
	dataErr := e.store.WriteDataAtomic(study, data)
	if dataErr != nil {
		dataErr = errors.TransportError{Op: "write data", Study: study.ID, Err: dataErr}
		e.studyLog(study).WithError(dataErr).Debug("Failed to write data")
	}

	metaErr := e.store.WriteMetadataAtomic(study, doc)
	if metaErr != nil {
		metaErr = errors.TransportError{Op: "write metadata", Study: study.ID, Err: metaErr}
		e.studyLog(study).WithError(metaErr).Debug("Failed to write metadata")
	}

	switch {
	case dataErr != nil:
		return outcome{failure: dataErr}, nil
	case metaErr != nil:
		return outcome{failure: metaErr}, nil
	}
	return outcome{}, nil
}

// classify decides whether a fetch error is recoverable.
func classify(err error) (outcome, error) {
	if errors.IsTransportError(err) {
		return outcome{failure: err}, nil
	}
	return outcome{}, err
}

func (e *Engine) studyLog(study catalog.Study) logrus.FieldLogger {
	return e.log.WithFields(logrus.Fields{
		"study": study.ID,
		"label": study.Label,
	})
}
